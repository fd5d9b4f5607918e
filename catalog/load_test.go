package catalog

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestLoad_RecognizesUUIDColumn(t *testing.T) {
	raw := `{
  "schemas": [
    {
      "name": "public",
      "objects": [
        {
          "name": "sessions",
          "kind": "table",
          "columns": [
            {"name": "id", "data_type": "uuid", "primary_key": true, "nullable": false},
            {"name": "label", "data_type": "text", "primary_key": false, "nullable": true}
          ]
        }
      ]
    }
  ]
}`
	cat, err := Load([]byte(raw), "postgres")
	require.NoError(t, err)

	obj, ok := cat.Object("public", "sessions")
	require.True(t, ok)

	idCol, ok := obj.Column("id")
	require.True(t, ok)
	require.True(t, idCol.IsUUID)

	labelCol, ok := obj.Column("label")
	require.True(t, ok)
	require.False(t, labelCol.IsUUID)

	// A generated example identifier should unmarshal back onto the
	// column's declared shape exactly like a real request payload value
	// would (spec §4.4 payload decoding never special-cases uuid text).
	example := uuid.New().String()
	var roundTripped string
	require.NoError(t, json.Unmarshal([]byte(`"`+example+`"`), &roundTripped))
	require.Equal(t, example, roundTripped)
}
