package credentials

import (
	"context"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSecurity mimics security(1) for a single generic password item.
type fakeSecurity struct {
	items map[string]string
	calls []string
}

func (f *fakeSecurity) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, name+" "+args[0])
	service := args[2]
	switch args[0] {
	case "find-generic-password":
		v, ok := f.items[service]
		if !ok {
			return nil, &exec.ExitError{}
		}
		return []byte(v + "\n"), nil
	case "add-generic-password":
		for i, a := range args {
			if a == "-w" {
				f.items[service] = args[i+1]
			}
		}
		return nil, nil
	case "delete-generic-password":
		if _, ok := f.items[service]; !ok {
			return nil, &exec.ExitError{}
		}
		delete(f.items, service)
		return nil, nil
	}
	return nil, nil
}

func TestKeychainStorage(t *testing.T) {
	fake := &fakeSecurity{items: map[string]string{}}
	storage := NewKeychainStorage("", nil)
	storage.run = fake.run
	ctx := context.Background()

	_, err := storage.Read(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, storage.Write(ctx, &Credential{AccessToken: "a", RefreshToken: "r"}))
	assert.True(t, strings.Contains(fake.items[DefaultKeychainService], `"refreshToken":"r"`))

	got, err := storage.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", got.AccessToken)

	require.NoError(t, storage.Clear(ctx))
	require.NoError(t, storage.Clear(ctx), "clearing a missing item is not an error")
	assert.Equal(t, []string{
		"security find-generic-password",
		"security add-generic-password",
		"security find-generic-password",
		"security delete-generic-password",
		"security delete-generic-password",
	}, fake.calls)
}
