package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDetailsCopies(t *testing.T) {
	base := Clone(ErrInvalidTransition, "cannot approve container in status approved")
	detailed := base.WithDetails(map[string]interface{}{"current_status": "approved"})
	more := detailed.WithDetails(map[string]interface{}{"action": "approve"})

	assert.Nil(t, base.Details)
	assert.Len(t, detailed.Details, 1)
	assert.Equal(t, map[string]interface{}{"current_status": "approved", "action": "approve"}, more.Details)
	assert.Nil(t, ErrInvalidTransition.Details)
}

func TestFromErrorKeepsTypedAndWrapsOthers(t *testing.T) {
	wrapped := fmt.Errorf("decide: %w", Clone(ErrConcurrentUpdate, ""))
	assert.Equal(t, "CONCURRENT_UPDATE", FromError(wrapped).Code)
	assert.True(t, Is(wrapped, ErrConcurrentUpdate))

	plain := FromError(fmt.Errorf("disk full"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.Status)
	assert.Nil(t, FromError(nil))
}

func TestErrorJSONHidesCause(t *testing.T) {
	err := Wrap(fmt.Errorf("pq: deadlock detected"), ErrInternal.Code, ErrInternal.Status, "failed to update container")
	raw, jsonErr := json.Marshal(err)
	require.NoError(t, jsonErr)
	assert.NotContains(t, string(raw), "deadlock")
	assert.NotContains(t, string(raw), "details")
	assert.Contains(t, err.Error(), "deadlock")
}
