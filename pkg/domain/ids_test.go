package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "havenlink/pkg/domain-errors"
)

func TestParseIdentityID(t *testing.T) {
	t.Run("valid UUID round-trips", func(t *testing.T) {
		want := NewIdentityID()
		got, err := ParseIdentityID(want.String())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("empty, malformed, and nil are rejected", func(t *testing.T) {
		for _, input := range []string{"", "not-a-uuid", uuid.Nil.String()} {
			_, err := ParseIdentityID(input)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "input %q", input)
		}
	})
}

func TestTypedIDs(t *testing.T) {
	t.Run("fresh IDs are not nil", func(t *testing.T) {
		assert.False(t, NewIdentityID().IsNil())
		assert.False(t, NewContractID().IsNil())
		assert.False(t, NewMessageID().IsNil())
		assert.False(t, NewNotificationID().IsNil())
		assert.False(t, NewFeedbackID().IsNil())
	})

	t.Run("zero values are nil", func(t *testing.T) {
		assert.True(t, IdentityID{}.IsNil())
		assert.True(t, ContractID{}.IsNil())
	})

	t.Run("IDs marshal to canonical UUID strings", func(t *testing.T) {
		identityID := NewIdentityID()
		data, err := json.Marshal(identityID)
		require.NoError(t, err)
		assert.Equal(t, `"`+identityID.String()+`"`, string(data))

		var decoded IdentityID
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, identityID, decoded)
	})

	t.Run("each parser validates its own kind", func(t *testing.T) {
		contractID := NewContractID()
		parsed, err := ParseContractID(contractID.String())
		require.NoError(t, err)
		assert.Equal(t, contractID, parsed)

		_, err = ParseMessageID("")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		_, err = ParseNotificationID("xyz")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		_, err = ParseFeedbackID(uuid.Nil.String())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
