package offering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSurvivingCount(t *testing.T) {
	existing := []string{"a", "b", "c"}

	assert.Equal(t, 3, SurvivingCount(existing, nil))
	assert.Equal(t, 2, SurvivingCount(existing, []AttachmentRef{{ID: "a"}}))
	assert.Equal(t, 0, SurvivingCount(existing, []AttachmentRef{{ID: "a"}, {ID: "b"}, {ID: "c"}}))
}

func TestSurvivingCountDuplicateDeletesAreIdempotent(t *testing.T) {
	existing := []string{"a", "b"}
	once := SurvivingCount(existing, []AttachmentRef{{ID: "a"}})
	twice := SurvivingCount(existing, []AttachmentRef{{ID: "a"}, {ID: "a"}})
	assert.Equal(t, once, twice)
}

func TestSurvivingCountIgnoresForeignIDs(t *testing.T) {
	// deleting an id that doesn't belong to the offering has no effect
	existing := []string{"a", "b"}
	assert.Equal(t, 2, SurvivingCount(existing, []AttachmentRef{{ID: "z"}}))
}

func TestCheckPictureMinimum(t *testing.T) {
	// additions and survivors both satisfy the floor
	assert.NoError(t, CheckPictureMinimum(0, 1))
	assert.NoError(t, CheckPictureMinimum(1, 0))
	assert.NoError(t, CheckPictureMinimum(2, 3))

	err := CheckPictureMinimum(0, 0)
	require.Error(t, err)
	env := Translate(err)
	require.Contains(t, env, "pictures")
	assert.Equal(t, "Please upload one or more pictures.", env["pictures"][0].Message)
}
