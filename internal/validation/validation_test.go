package validation

import (
	"strings"
	"testing"

	"coursegen-worker/pkg/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateJobID(t *testing.T) {
	vs := NewValidationService(nil)

	assert.True(t, vs.ValidateJobID(uuid.New().String()).Valid)

	result := vs.ValidateJobID("")
	require.False(t, result.Valid)
	assert.Equal(t, "REQUIRED", result.Errors[0].Code)

	result = vs.ValidateJobID("not-a-uuid")
	require.False(t, result.Valid)
	assert.Equal(t, "INVALID_UUID", result.Errors[0].Code)
}

func TestValidateSubmitRequest(t *testing.T) {
	vs := NewValidationService(nil)

	valid := vs.ValidateSubmitRequest(&models.SubmitRequest{
		OwnerID: "owner-1",
		JobType: "generate_course",
		Payload: map[string]interface{}{"subject": "Math", "grade": "4"},
	})
	assert.True(t, valid.Valid)

	missing := vs.ValidateSubmitRequest(&models.SubmitRequest{JobType: "generate_course"})
	require.False(t, missing.Valid)
	assert.Equal(t, "owner_id", missing.Errors[0].Field)

	unknown := vs.ValidateSubmitRequest(&models.SubmitRequest{
		OwnerID: "owner-1",
		JobType: "mine_bitcoin",
	})
	require.False(t, unknown.Valid)
	assert.Equal(t, "UNKNOWN_JOB_TYPE", unknown.Errors[0].Code)

	assert.False(t, vs.ValidateSubmitRequest(nil).Valid)
}

func TestValidateSubmitRequestPayloadBounds(t *testing.T) {
	vs := NewValidationService(nil)

	oversized := vs.ValidateSubmitRequest(&models.SubmitRequest{
		OwnerID: "owner-1",
		JobType: "generate_course",
		Payload: map[string]interface{}{"subject": strings.Repeat("x", 10001)},
	})
	require.False(t, oversized.Valid)
	assert.Equal(t, "VALUE_TOO_LONG", oversized.Errors[0].Code)

	longOwner := vs.ValidateSubmitRequest(&models.SubmitRequest{
		OwnerID: strings.Repeat("o", 65),
		JobType: "generate_course",
	})
	require.False(t, longOwner.Valid)
	assert.Equal(t, "TOO_LONG", longOwner.Errors[0].Code)
}

func TestValidateListParams(t *testing.T) {
	vs := NewValidationService(nil)

	assert.True(t, vs.ValidateListParams("", "", 0).Valid)
	assert.True(t, vs.ValidateListParams("queued", "owner-1", 50).Valid)

	badStatus := vs.ValidateListParams("sleeping", "", 10)
	require.False(t, badStatus.Valid)
	assert.Equal(t, "UNKNOWN_STATUS", badStatus.Errors[0].Code)

	badLimit := vs.ValidateListParams("", "", 101)
	require.False(t, badLimit.Valid)
	assert.Equal(t, "INVALID_LIMIT", badLimit.Errors[0].Code)
}
