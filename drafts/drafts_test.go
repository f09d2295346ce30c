package drafts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ahmed-abdelmageed/vise-services-sub001/apperr"
	"github.com/ahmed-abdelmageed/vise-services-sub001/models"
	"github.com/ahmed-abdelmageed/vise-services-sub001/wizard"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memKV struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemKV() *memKV {
	return &memKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrMissing
	}
	return v, nil
}

func (m *memKV) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func TestSaveLoadDelete(t *testing.T) {
	kv := newMemKV()
	s := NewStore(kv)
	ctx := context.Background()
	id := uuid.NewString()

	saved, err := s.Save(ctx, id, Draft{
		Step: wizard.DocumentUpload,
		Form: wizard.Form{
			FirstName:  "  Sara ",
			Email:      "SARA@Example.com",
			Adults:     1,
			Travellers: []models.Traveller{{FullName: "Sara Ali"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sara", saved.Form.FirstName)
	assert.Equal(t, TTL, kv.ttls[keyPrefix+id])

	loaded, err := s.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, wizard.DocumentUpload, loaded.Step)
	assert.Equal(t, "sara@example.com", loaded.Form.Email)
	assert.Equal(t, "Sara Ali", loaded.Form.Travellers[0].FullName)
	assert.False(t, loaded.UpdatedAt.IsZero())

	require.NoError(t, s.Delete(ctx, id))
	_, err = s.Load(ctx, id)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestSaveResetsUnknownStep(t *testing.T) {
	s := NewStore(newMemKV())
	d, err := s.Save(context.Background(), uuid.NewString(), Draft{Step: 9})
	require.NoError(t, err)
	assert.Equal(t, wizard.PersonalInfo, d.Step)
}

func TestRejectsNonUUIDKeys(t *testing.T) {
	s := NewStore(newMemKV())
	_, err := s.Load(context.Background(), "../../etc")
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "uuid", ae.Fields["id"])
}

func TestCorruptDraftReadsAsMissing(t *testing.T) {
	kv := newMemKV()
	s := NewStore(kv)
	id := uuid.NewString()
	kv.data[keyPrefix+id] = "{not json"

	_, err := s.Load(context.Background(), id)
	assert.True(t, apperr.Is(err, apperr.NotFound))
	assert.NotContains(t, kv.data, keyPrefix+id)
}
