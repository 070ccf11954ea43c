package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProject = Project{
	ID:               "p1",
	Name:             "Mangrove Restoration",
	Category:         "Regeneration",
	RecipientAddress: "0x1111111111111111111111111111111111111111",
}

func TestNewIntent_SnapshotsProject(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	intent, err := NewIntent(testProject, decimal.RequireFromString("0.10"), CUSD, "keep going", at)
	require.NoError(t, err)

	assert.Equal(t, "p1", intent.ProjectID)
	assert.Equal(t, "Mangrove Restoration", intent.ProjectName)
	assert.Equal(t, "Regeneration", intent.Category)
	assert.Equal(t, testProject.RecipientAddress, intent.RecipientAddress)
	assert.True(t, intent.Amount.Equal(decimal.RequireFromString("0.1")))
	assert.Equal(t, CUSD, intent.Currency)
	assert.Equal(t, "keep going", intent.Message)
	assert.Equal(t, at, intent.CreatedAt)
}

func TestNewIntent_AddressIsACopy(t *testing.T) {
	p := testProject
	intent, err := NewIntent(p, decimal.NewFromInt(1), USDT, "", time.Time{})
	require.NoError(t, err)

	p.RecipientAddress = "0x2222222222222222222222222222222222222222"
	assert.Equal(t, testProject.RecipientAddress, intent.RecipientAddress)
}

func TestNewIntent_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		project  Project
		amount   decimal.Decimal
		currency Currency
	}{
		{"zero amount", testProject, decimal.Zero, CUSD},
		{"negative amount", testProject, decimal.NewFromInt(-1), CUSD},
		{"unknown currency", testProject, decimal.NewFromInt(1), Currency("DAI")},
		{"no recipient", Project{ID: "p9"}, decimal.NewFromInt(1), CUSD},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIntent(tt.project, tt.amount, tt.currency, "", time.Time{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidParameter))
		})
	}
}

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency("cusd")
	require.NoError(t, err)
	assert.Equal(t, CUSD, c)

	c, err = ParseCurrency(" USDC ")
	require.NoError(t, err)
	assert.Equal(t, USDC, c)

	_, err = ParseCurrency("cEUR")
	assert.True(t, errors.Is(err, ErrInvalidParameter))
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("Right")
	require.NoError(t, err)
	assert.Equal(t, Right, d)
	assert.Equal(t, "right", d.String())

	d, err = ParseDirection("l")
	require.NoError(t, err)
	assert.Equal(t, Left, d)

	_, err = ParseDirection("up")
	assert.True(t, errors.Is(err, ErrInvalidParameter))
}

func TestDirection_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		D Direction `json:"d"`
	}{Right})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"right"}`, string(data))

	var out struct {
		D Direction `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"L"}`), &out))
	assert.Equal(t, Left, out.D)

	_, err = json.Marshal(Direction(0))
	assert.Error(t, err)
}

func TestValidAddress(t *testing.T) {
	assert.True(t, ValidAddress("0x765DE816845861e75A25fCA122bb6898B8B1282a"))
	assert.False(t, ValidAddress("0xA"))
	assert.False(t, ValidAddress("765DE816845861e75A25fCA122bb6898B8B1282a"))
	assert.False(t, ValidAddress(""))
}
