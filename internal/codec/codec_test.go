package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qdispatch/internal/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestSignOpenRoundTrip(t *testing.T) {
	signer, err := New(testSecret)
	require.NoError(t, err)

	cached := true
	pkg := domain.Package{
		ID:      "6b9f34a2-0000-4000-8000-000000000001",
		Name:    "polite-otter-quail-emerald",
		Func:    "math.add",
		Args:    []any{float64(1), float64(2)},
		Kwargs:  map[string]any{"precision": "high"},
		Started: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Group:   "g-1",
		Cached:  &cached,
		Chain: []domain.Step{
			{Func: "math.mul", Args: []any{float64(3)}},
		},
	}

	payload, err := signer.Sign(pkg)
	require.NoError(t, err)

	var got domain.Package
	require.NoError(t, signer.Open(payload, &got))
	assert.Equal(t, pkg, got)
}

func TestOpenRejectsTamperedPayload(t *testing.T) {
	signer, err := New(testSecret)
	require.NoError(t, err)

	payload, err := signer.Sign(map[string]any{"id": "x"})
	require.NoError(t, err)

	// Flip a byte in the signed body.
	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)/2] ^= 0x01

	var out map[string]any
	err = signer.Open(tampered, &out)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestOpenRejectsGarbage(t *testing.T) {
	signer, err := New(testSecret)
	require.NoError(t, err)

	var out map[string]any
	err = signer.Open([]byte("not a payload"), &out)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestOpenRejectsForeignKey(t *testing.T) {
	signer, err := New(testSecret)
	require.NoError(t, err)
	other, err := New("ffffffffffffffffffffffffffffffff")
	require.NoError(t, err)

	payload, err := signer.Sign(map[string]any{"id": "x"})
	require.NoError(t, err)

	var out map[string]any
	err = other.Open(payload, &out)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
