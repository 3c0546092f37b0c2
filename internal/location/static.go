package location

import (
	"context"

	"github.com/kjstillabower/clima/internal/models"
)

// StaticProvider reports one fixed position per subscription.
type StaticProvider struct {
	coords models.Coordinates
}

func NewStaticProvider(c models.Coordinates) *StaticProvider {
	return &StaticProvider{coords: c}
}

func (p *StaticProvider) Name() string { return "static" }

func (p *StaticProvider) Subscribe(ctx context.Context) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := newStream(nil)
	go s.publish(p.coords)
	return s, nil
}
