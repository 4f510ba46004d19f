package persist

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLZ4JSONCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	// Sorted numeric-looking ids mimic a real ledger payload.
	ids := make([]string, 0, 50000)
	for i := 0; i < 50000; i++ {
		ids = append(ids, fmt.Sprintf("%d", 100000+i))
	}

	codec := NewLZ4JSONCodec()

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, ids))

	var restored []string

	require.NoError(t, codec.Decode(&buf, &restored))

	assert.Equal(t, ids, restored)
}

func TestLZ4JSONCodec_CompressesRepetitiveInput(t *testing.T) {
	t.Parallel()

	ids := make([]string, 0, 20000)
	for i := 0; i < 20000; i++ {
		ids = append(ids, fmt.Sprintf("%d", 500000+i))
	}

	plain := NewJSONCodec()
	compressed := NewLZ4JSONCodec()

	var plainBuf, lz4Buf bytes.Buffer

	require.NoError(t, plain.Encode(&plainBuf, ids))
	require.NoError(t, compressed.Encode(&lz4Buf, ids))

	assert.Less(t, lz4Buf.Len(), plainBuf.Len())
}

func TestLZ4JSONCodec_DecodeGarbage(t *testing.T) {
	t.Parallel()

	codec := NewLZ4JSONCodec()

	var out []string

	err := codec.Decode(bytes.NewReader([]byte("definitely not an lz4 frame")), &out)

	assert.Error(t, err)
}
