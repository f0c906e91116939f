package hashutil_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottgl9/android-google-drive-sync-sub001/internal/hashutil"
	"github.com/scottgl9/android-google-drive-sync-sub001/pkg/types"
)

func TestStreamMD5_RFC1321Vectors(t *testing.T) {
	vectors := map[string]string{
		"":                                                              "d41d8cd98f00b204e9800998ecf8427e",
		"a":                                                             "0cc175b9c0f1b6a831c399e269772661",
		"abc":                                                           "900150983cd24fb0d6963f7d28e17f72",
		"message digest":                                                "f96b697d7cb7938d525a2f31aaf161d0",
		"abcdefghijklmnopqrstuvwxyz":                                    "c3fcd3d76192e4007dfb496cca67e13b",
	}

	for input, want := range vectors {
		got, err := hashutil.Stream(strings.NewReader(input), types.AlgorithmMD5)
		require.NoError(t, err)
		assert.Equal(t, want, got, "md5(%q)", input)
	}
}

func TestStreamSHA256_FIPS1804Vectors(t *testing.T) {
	vectors := map[string]string{
		"abc": "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		"":    "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
	}

	for input, want := range vectors {
		got, err := hashutil.Stream(strings.NewReader(input), types.AlgorithmSHA256)
		require.NoError(t, err)
		assert.Equal(t, want, got, "sha256(%q)", input)
	}
}

func TestBytes_MatchesStream(t *testing.T) {
	data := []byte("deterministic content")

	streamed, err := hashutil.Stream(strings.NewReader(string(data)), types.AlgorithmSHA256)
	require.NoError(t, err)

	assert.Equal(t, streamed, hashutil.Bytes(data, types.AlgorithmSHA256))
}
