package json_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kart-io/docrag/pkg/utils/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags,omitempty"`
}

func TestMarshalUnmarshal(t *testing.T) {
	in := sample{Name: "report.pdf", Count: 3, Tags: []string{"a", "b"}}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out sample
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(sample{Name: "x"}))

	var out sample
	require.NoError(t, json.NewDecoder(strings.NewReader(buf.String())).Decode(&out))
	assert.Equal(t, "x", out.Name)
}

func TestUnmarshalInvalidInput(t *testing.T) {
	var out sample
	assert.Error(t, json.Unmarshal([]byte("{not json"), &out))
}
