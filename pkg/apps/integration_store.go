package apps

import (
	"context"
	"maps"

	"github.com/dmitrymomot/notifykit/pkg/command"
	"github.com/dmitrymomot/notifykit/pkg/integration"
)

// IntegrationStore keeps integration records inside the App aggregate, so
// every status change is a versioned SetIntegration command.
type IntegrationStore struct {
	repo command.Repository[App]
	opts []command.UpdateOption
}

var _ integration.Store = (*IntegrationStore)(nil)

// NewIntegrationStore keeps integration records on the app aggregate in repo.
func NewIntegrationStore(repo command.Repository[App], opts ...command.UpdateOption) *IntegrationStore {
	return &IntegrationStore{repo: repo, opts: opts}
}

func (s *IntegrationStore) Get(ctx context.Context, appID, integrationID string) (integration.Record, bool, error) {
	app, err := s.repo.Get(ctx, appID)
	if err != nil {
		return integration.Record{}, false, err
	}
	rec, ok := app.Integrations[integrationID]
	return rec, ok, nil
}

// Update applies fn through a SetIntegration command.
func (s *IntegrationStore) Update(ctx context.Context, appID, integrationID string, fn integration.UpdateFunc) (integration.Record, error) {
	var next integration.Record
	_, err := command.UpdateFunc(ctx, s.repo, appID, func(app App) (command.Command[App], error) {
		cur, ok := app.Integrations[integrationID]
		rec, err := fn(cur, ok)
		if err != nil {
			return nil, err
		}
		next = rec
		return SetIntegration{IntegrationID: integrationID, Record: rec}, nil
	}, s.opts...)
	if err != nil {
		return integration.Record{}, err
	}
	return next, nil
}

func (s *IntegrationStore) List(ctx context.Context, appID string) (map[string]integration.Record, error) {
	app, err := s.repo.Get(ctx, appID)
	if err != nil {
		return nil, err
	}
	return maps.Clone(app.Integrations), nil
}
