package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"wastewatch-backend/internal/models"
	"wastewatch-backend/internal/store/memory"
)

// recordingPublisher captures websocket broadcasts.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	target string // user id or role
	event  string
	data   interface{}
}

func (p *recordingPublisher) BroadcastToUser(userID string, event string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{target: userID, event: event, data: data})
}

func (p *recordingPublisher) BroadcastToRole(role models.Role, event string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{target: string(role), event: event, data: data})
}

func (p *recordingPublisher) named(event string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

func seedUser(t *testing.T, s *memory.Store, id string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{ID: id, Email: id + "@city.gov", Name: id, Role: role}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func overflowRequest(creatorID string) models.CreateReportRequest {
	return models.CreateReportRequest{
		Title:       "Overflow",
		Description: "Bin overflowing onto the sidewalk",
		WasteType:   "general",
		Location:    "5th St",
		CreatorID:   creatorID,
	}
}
