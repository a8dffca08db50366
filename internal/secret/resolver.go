// Package secret provides an abstraction for retrieving secrets from
// different backends (SSM Parameter Store, Secrets Manager, environment variables).
package secret

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// SSMClient is the subset of *ssm.Client methods used by SSMResolver.
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SecretsManagerClient is the subset of *secretsmanager.Client methods used by SecretsManagerResolver.
type SecretsManagerClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Resolver retrieves secret values by name.
type Resolver interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// New returns the Resolver for backend ("ssm", "secretsmanager" or "env").
func New(backend string, cfg aws.Config) (Resolver, error) {
	switch backend {
	case "ssm":
		return NewSSMResolver(ssm.NewFromConfig(cfg)), nil
	case "secretsmanager":
		return NewSecretsManagerResolver(secretsmanager.NewFromConfig(cfg)), nil
	case "env":
		return NewEnvResolver(), nil
	default:
		return nil, fmt.Errorf("unknown secret backend %q", backend)
	}
}

// SSMResolver fetches secrets from AWS Systems Manager Parameter Store.
type SSMResolver struct {
	client SSMClient
}

// NewSSMResolver returns a Resolver backed by SSM Parameter Store.
func NewSSMResolver(client SSMClient) Resolver {
	return &SSMResolver{client: client}
}

// GetSecret retrieves a SecureString parameter from SSM with decryption.
func (r *SSMResolver) GetSecret(ctx context.Context, name string) (string, error) {
	out, err := r.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("ssm get parameter %q: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("ssm parameter %q has no value", name)
	}
	return *out.Parameter.Value, nil
}

// SecretsManagerResolver fetches secrets from AWS Secrets Manager.
// A name of the form "secret-id#key" selects one key of a JSON secret.
type SecretsManagerResolver struct {
	client SecretsManagerClient
}

// NewSecretsManagerResolver returns a Resolver backed by Secrets Manager.
func NewSecretsManagerResolver(client SecretsManagerClient) Resolver {
	return &SecretsManagerResolver{client: client}
}

// GetSecret retrieves the secret string, optionally picking a key out of a JSON document.
func (r *SecretsManagerResolver) GetSecret(ctx context.Context, name string) (string, error) {
	id, key, _ := strings.Cut(name, "#")

	out, err := r.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		return "", fmt.Errorf("secretsmanager get secret %q: %w", id, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %q has no string value", id)
	}
	if key == "" {
		return *out.SecretString, nil
	}

	var doc map[string]string
	if err := json.Unmarshal([]byte(*out.SecretString), &doc); err != nil {
		return "", fmt.Errorf("secret %q is not a JSON object: %w", id, err)
	}
	val, ok := doc[key]
	if !ok || val == "" {
		return "", fmt.Errorf("secret %q has no key %q", id, key)
	}
	return val, nil
}

// EnvResolver fetches secrets from environment variables.
// The parameter name is converted from SSM path format (e.g. "/watchlist/jwt-secret")
// to the corresponding environment variable name (e.g. "JWT_SECRET") by taking the
// last segment, uppercasing, and replacing hyphens with underscores.
type EnvResolver struct{}

// NewEnvResolver returns a Resolver that reads from environment variables.
func NewEnvResolver() Resolver {
	return &EnvResolver{}
}

// GetSecret reads from the environment variable derived from the parameter name.
func (r *EnvResolver) GetSecret(_ context.Context, name string) (string, error) {
	envName := paramNameToEnvVar(name)
	val := os.Getenv(envName)
	if val == "" {
		return "", fmt.Errorf("environment variable %q (from param %q) is not set", envName, name)
	}
	return val, nil
}

// paramNameToEnvVar converts an SSM parameter name to an environment variable name.
// "/watchlist/jwt-secret" -> "JWT_SECRET"
func paramNameToEnvVar(name string) string {
	name, _, _ = strings.Cut(name, "#")
	parts := strings.Split(name, "/")
	last := parts[len(parts)-1]
	return strings.ToUpper(strings.ReplaceAll(last, "-", "_"))
}
