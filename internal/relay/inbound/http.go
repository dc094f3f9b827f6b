package inbound

import (
	"context"

	"github.com/metafog/freesend/internal/pkg/router"
	"github.com/metafog/freesend/internal/relay/usecase"
)

type uc interface {
	SendEmail(ctx context.Context, in usecase.SendEmailInput) error
	SendTestEmail(ctx context.Context, in usecase.SendTestEmailInput) error
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/api/send-email", end.SendEmail)
	r.POST("/api/send-email/test", end.SendTestEmail) // need authenticated
}
