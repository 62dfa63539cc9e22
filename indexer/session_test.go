package indexer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/usemiddleman/middleman/types"
)

func TestSessionSupersedesOlderTickets(t *testing.T) {
	s := NewSession()
	first := s.Begin("stars1alice")
	require.True(t, first.Valid())

	second := s.Begin("stars1bob")
	require.False(t, first.Valid())
	require.True(t, second.Valid())
	require.Equal(t, "stars1bob", s.Current())

	applied := false
	require.ErrorIs(t, first.Commit(func() { applied = true }), types.ErrStaleSession)
	require.False(t, applied)

	require.NoError(t, second.Commit(func() { applied = true }))
	require.True(t, applied)
}

func TestSessionSameTargetStillSupersedes(t *testing.T) {
	s := NewSession()
	a := s.Begin("stars1alice")
	b := s.Begin("stars1alice")
	require.False(t, a.Valid())
	require.True(t, b.Valid())
}

func TestZeroTicketIsStale(t *testing.T) {
	var ticket Ticket
	require.False(t, ticket.Valid())
	require.ErrorIs(t, ticket.Commit(func() {}), types.ErrStaleSession)
}

func TestOwnedTokensForDropsStaleResults(t *testing.T) {
	s := NewSession()
	ft := newFakeTransport()
	ft.on(ownedOffsetDoc(), func(vars map[string]any) (json.RawMessage, error) {
		if vars["owner"] == "stars1alice" {
			// the user switched peers while this request was in flight
			s.Begin("stars1bob")
		}
		return offsetServer(3)(vars)
	})
	c := NewClient(ft, testCacheConfig(), discardLogger())

	stale := s.Begin("stars1alice")
	tokens, err := c.OwnedTokensFor(context.Background(), stale, 0)
	require.ErrorIs(t, err, types.ErrStaleSession)
	require.Nil(t, tokens)

	fresh := s.Begin("stars1carol")
	tokens, err = c.OwnedTokensFor(context.Background(), fresh, 0)
	require.NoError(t, err)
	require.Len(t, tokens, 3)
}

func TestGuard(t *testing.T) {
	s := NewSession()
	ticket := s.Begin("stars1alice")

	got, err := Guard(ticket, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	require.Equal(t, 7, got)

	got, err = Guard(ticket, func() (int, error) {
		s.Begin("stars1bob")
		return 8, nil
	})
	require.ErrorIs(t, err, types.ErrStaleSession)
	require.Zero(t, got)
}

func TestGuardedEnrichmentDropsStaleResults(t *testing.T) {
	s := NewSession()
	ft := newFakeTransport()
	ft.fallback = func(string, map[string]any) (json.RawMessage, error) {
		s.Begin("stars1bob")
		return nil, &types.TransportError{Method: "POST", HTTPStatus: 500, Message: "down"}
	}
	c := NewClient(ft, testCacheConfig(), discardLogger())

	floors, err := c.FloorsFor(context.Background(), s.Begin("stars1alice"), []string{"stars1col"})
	require.ErrorIs(t, err, types.ErrStaleSession)
	require.Nil(t, floors)

	keys := []types.EntityKey{{Collection: "stars1col", TokenID: "1"}}
	images, err := c.TokenImagesFor(context.Background(), s.Begin("stars1alice"), keys)
	require.ErrorIs(t, err, types.ErrStaleSession)
	require.Nil(t, images)

	details, err := c.TokenDetailsFor(context.Background(), s.Begin("stars1alice"), keys)
	require.ErrorIs(t, err, types.ErrStaleSession)
	require.Nil(t, details)

	_, err = c.OwnedTokensPageFor(context.Background(), s.Begin("stars1alice"), "", 10)
	require.ErrorIs(t, err, types.ErrStaleSession)
}

func TestGuardedFloorsKeepCurrentResults(t *testing.T) {
	s := NewSession()
	ft := newFakeTransport()
	c := NewClient(ft, testCacheConfig(), discardLogger())

	floors, err := c.FloorsFor(context.Background(), s.Begin("stars1alice"), []string{"stars1col"})
	require.NoError(t, err)
	require.Empty(t, floors)
}
