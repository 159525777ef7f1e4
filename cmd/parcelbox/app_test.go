package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BearBump/ParcelBox/internal/carriers"
	"github.com/BearBump/ParcelBox/internal/integrations/tracking/fake"
	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/BearBump/ParcelBox/internal/services/parcels"
)

type memCache struct {
	snaps map[string]models.StatusSnapshot
}

func (c *memCache) Get(_ context.Context, id string) (*models.StatusSnapshot, bool, error) {
	snap, ok := c.snaps[id]
	if !ok {
		return nil, false, nil
	}
	return &snap, true, nil
}

func (c *memCache) Set(_ context.Context, id string, snap models.StatusSnapshot) error {
	c.snaps[id] = snap
	return nil
}

func (c *memCache) Delete(_ context.Context, id string) error {
	delete(c.snaps, id)
	return nil
}

type memRepo struct {
	pkgs []*models.Package
}

func (r *memRepo) CreatePackage(_ context.Context, trackingNumber string) (*models.Package, error) {
	p := &models.Package{
		ID:             trackingNumber, // для теста сойдёт и сам номер
		TrackingNumber: trackingNumber,
		AddedAt:        time.Now().UTC(),
	}
	r.pkgs = append(r.pkgs, p)
	return p, nil
}

func (r *memRepo) GetPackage(_ context.Context, id string) (*models.Package, error) {
	for _, p := range r.pkgs {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (r *memRepo) ListPackages(_ context.Context) ([]*models.Package, error) {
	return r.pkgs, nil
}

func (r *memRepo) UpdatePackage(_ context.Context, id string, patch models.PackagePatch) (*models.Package, error) {
	for _, p := range r.pkgs {
		if p.ID != id {
			continue
		}
		if patch.Notes != nil {
			p.Notes = *patch.Notes
		}
		return p, nil
	}
	return nil, nil
}

func (r *memRepo) DeletePackage(_ context.Context, id string) error { return nil }

func (r *memRepo) DeleteAllPackages(_ context.Context) ([]string, error) { return nil, nil }

func (r *memRepo) ListCompletedBefore(_ context.Context, _ time.Time) ([]*models.Package, error) {
	return nil, nil
}

func TestRunServer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := parcels.New(
		&memRepo{},
		&memCache{snaps: make(map[string]models.StatusSnapshot)},
		carriers.NewRegistry(),
		fake.New(),
	)

	addrCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- runServer(ctx, serverOpts{
			httpAddr: "127.0.0.1:0",
			onListen: func(addr string) { addrCh <- addr },
		}, svc)
	}()

	var addr string
	select {
	case addr = <-addrCh:
	case err := <-errCh:
		t.Fatalf("server did not start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for listener")
	}

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"ok"}`, string(body))

	// API смонтирован под /api и реально работает сквозь сервис.
	resp, err = http.Post("http://"+addr+"/api/packages", "application/json",
		strings.NewReader(`{"text":"1Z12345E0205271688"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Packages []*models.HydratedPackage `json:"packages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.Len(t, created.Packages, 1)
	require.Equal(t, "ups", created.Packages[0].CarrierCode)

	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunServer_badAddr(t *testing.T) {
	svc := parcels.New(
		&memRepo{},
		&memCache{snaps: make(map[string]models.StatusSnapshot)},
		carriers.NewRegistry(),
		fake.New(),
	)
	err := runServer(context.Background(), serverOpts{httpAddr: "256.256.256.256:99999"}, svc)
	require.Error(t, err)
}
