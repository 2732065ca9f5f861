package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRun_Argument(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-cost", "4", "s3cret"}, strings.NewReader(""), &out))

	hash := strings.TrimSpace(out.String())
	assert.Len(t, hash, 60)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}

func TestRun_Stdin(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-cost", "4"}, strings.NewReader("from stdin\n"), &out))

	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("from stdin")))
}

func TestRun_Empty(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run(nil, strings.NewReader(""), &out))
	assert.Empty(t, out.String())
}
