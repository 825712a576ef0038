package handlers

import (
	"context"

	"go-leasegate/internal/control"
	"go-leasegate/internal/services"
	"go-leasegate/internal/settlement"
	"go-leasegate/internal/store"
)

// PaymentLinks creates hosted checkout links.
type PaymentLinks interface {
	InitializePayment(ctx context.Context, req services.FlutterwaveInitRequest) (string, error)
}

// Handler holds what the HTTP endpoints need.
type Handler struct {
	settlement *settlement.Service
	payments   PaymentLinks
	store      store.Store
	ingress    *control.Ingress
}

func New(svc *settlement.Service, payments PaymentLinks, s store.Store, ingress *control.Ingress) *Handler {
	return &Handler{settlement: svc, payments: payments, store: s, ingress: ingress}
}
