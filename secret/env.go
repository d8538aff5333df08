package secret

import (
	"context"
	"fmt"
	"os"
)

// EnvProvider resolves "secretref:env:NAME" from the environment.
type EnvProvider struct{}

func (EnvProvider) Name() string { return "env" }

func (EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("%w: env %s", ErrNotFound, ref)
	}
	return v, nil
}

func (EnvProvider) Close() error { return nil }
