package handlers

import (
	"github.com/rs/zerolog"

	"gallery-server/internal/config"
	domain "gallery-server/internal/domain/media"
)

// Provider wires HTTP handlers.
type Provider struct {
	Gallery *GalleryHandler
}

func NewProvider(cfg *config.Config, service *domain.Service, db Pinger, log zerolog.Logger) *Provider {
	return &Provider{
		Gallery: NewGalleryHandler(cfg, service, db, log),
	}
}
