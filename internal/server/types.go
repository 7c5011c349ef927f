package server

import (
	"time"

	"github.com/warelink/shipbridge/internal/engine"
	"github.com/warelink/shipbridge/internal/store"
	"github.com/warelink/shipbridge/pkg/courier"
)

// Response shapes. Money fields carry the provider's values unchanged.

type orderListJSON struct {
	Data []orderDetailJSON `json:"data"`
	Meta paginationJSON    `json:"meta"`
}

type paginationJSON struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type orderDetailJSON struct {
	ID               string          `json:"id"`
	SourceID         string          `json:"sourceId"`
	OrderNumber      string          `json:"orderNumber"`
	CustomerName     string          `json:"customerName"`
	CustomerEmail    string          `json:"customerEmail,omitempty"`
	CustomerPhone    string          `json:"customerPhone,omitempty"`
	DeliveryStreet   string          `json:"deliveryStreet"`
	DeliverySuburb   string          `json:"deliverySuburb"`
	DeliveryCity     string          `json:"deliveryCity"`
	DeliveryPostcode string          `json:"deliveryPostcode"`
	DeliveryCountry  string          `json:"deliveryCountry"`
	IsRural          bool            `json:"isRural"`
	Items            []store.Item    `json:"items"`
	Status           string          `json:"status"`
	ValidationErrors []string        `json:"validationErrors,omitempty"`
	Quotations       []quotationJSON `json:"quotations"`
	Shipment         *shipmentJSON   `json:"shipment,omitempty"`
	ErrorLogs        []errorLogJSON  `json:"errorLogs,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	SyncedAt         *time.Time      `json:"syncedAt,omitempty"`
}

type quotationJSON struct {
	ID             string    `json:"id"`
	ProviderID     int       `json:"providerId"`
	ProviderName   string    `json:"providerName"`
	ServiceType    string    `json:"serviceType"`
	BasePrice      float64   `json:"basePrice"`
	RuralSurcharge float64   `json:"ruralSurcharge"`
	GST            float64   `json:"gst"`
	TotalPrice     float64   `json:"totalPrice"`
	IsSelected     bool      `json:"isSelected"`
	ExpiresAt      time.Time `json:"expiresAt"`
	CreatedAt      time.Time `json:"createdAt"`
}

type quoteOutcomeJSON struct {
	IsRural    bool            `json:"isRural"`
	Quotations []quotationJSON `json:"quotations"`
}

type shipmentJSON struct {
	ID                string    `json:"id"`
	OrderID           string    `json:"orderId"`
	ProviderID        int       `json:"providerId"`
	ProviderName      string    `json:"providerName"`
	TrackingNumber    string    `json:"trackingNumber,omitempty"`
	TrackingURL       string    `json:"trackingUrl,omitempty"`
	ConsignmentNumber string    `json:"consignmentNumber"`
	LabelURL          string    `json:"labelUrl,omitempty"`
	LabelFileName     string    `json:"labelFileName,omitempty"`
	LabelDownloaded   bool      `json:"labelDownloaded"`
	FinalPrice        float64   `json:"finalPrice"`
	CreatedAt         time.Time `json:"createdAt"`
}

type errorLogJSON struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type addressJSON struct {
	Name     string `json:"name"`
	Company  string `json:"company,omitempty"`
	Street   string `json:"street"`
	Street2  string `json:"street2,omitempty"`
	Suburb   string `json:"suburb"`
	City     string `json:"city"`
	Postcode string `json:"postcode"`
	Country  string `json:"country,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
}

func (a *addressJSON) toAddress() courier.Address {
	return courier.Address{
		Name:     a.Name,
		Company:  a.Company,
		Street:   a.Street,
		Street2:  a.Street2,
		Suburb:   a.Suburb,
		City:     a.City,
		Postcode: a.Postcode,
		Country:  a.Country,
		Phone:    a.Phone,
		Email:    a.Email,
	}
}

func toOrderDetailJSON(d *engine.OrderDetail) orderDetailJSON {
	o := d.Order
	out := orderDetailJSON{
		ID:               o.ID,
		SourceID:         o.SourceID,
		OrderNumber:      o.OrderNumber,
		CustomerName:     o.CustomerName,
		CustomerEmail:    o.CustomerEmail,
		CustomerPhone:    o.CustomerPhone,
		DeliveryStreet:   o.DeliveryStreet,
		DeliverySuburb:   o.DeliverySuburb,
		DeliveryCity:     o.DeliveryCity,
		DeliveryPostcode: o.DeliveryPostcode,
		DeliveryCountry:  o.DeliveryCountry,
		IsRural:          o.IsRural,
		Items:            o.Items,
		Status:           string(o.Status),
		ValidationErrors: d.ValidationErrors,
		Quotations:       make([]quotationJSON, 0, len(d.Quotations)),
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		SyncedAt:         o.SyncedAt,
	}
	for _, q := range d.Quotations {
		out.Quotations = append(out.Quotations, toQuotationJSON(q))
	}
	if d.Shipment != nil {
		sh := toShipmentJSON(d.Shipment)
		out.Shipment = &sh
	}
	for _, e := range d.ErrorLogs {
		out.ErrorLogs = append(out.ErrorLogs, errorLogJSON{
			ID:        e.ID,
			Action:    e.Action,
			Message:   e.Message,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

func toQuotationJSON(q *store.Quotation) quotationJSON {
	return quotationJSON{
		ID:             q.ID,
		ProviderID:     q.ProviderID,
		ProviderName:   q.ProviderName,
		ServiceType:    q.ServiceType,
		BasePrice:      q.BasePrice,
		RuralSurcharge: q.RuralSurcharge,
		GST:            q.GST,
		TotalPrice:     q.TotalPrice,
		IsSelected:     q.IsSelected,
		ExpiresAt:      q.ExpiresAt,
		CreatedAt:      q.CreatedAt,
	}
}

func toShipmentJSON(sh *store.Shipment) shipmentJSON {
	return shipmentJSON{
		ID:                sh.ID,
		OrderID:           sh.OrderID,
		ProviderID:        sh.ProviderID,
		ProviderName:      sh.ProviderName,
		TrackingNumber:    sh.TrackingNumber,
		TrackingURL:       sh.TrackingURL,
		ConsignmentNumber: sh.ConsignmentNumber,
		LabelURL:          sh.LabelURL,
		LabelFileName:     sh.LabelFileName,
		LabelDownloaded:   sh.LabelDownloaded,
		FinalPrice:        sh.FinalPrice,
		CreatedAt:         sh.CreatedAt,
	}
}
