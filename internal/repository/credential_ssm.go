package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"golang.org/x/oauth2"

	"coworkspace/internal/calendar"
)

// ssmAPI is the subset of *ssm.Client used by SSMCredentialStore.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, in *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
	DeleteParameter(ctx context.Context, in *ssm.DeleteParameterInput, optFns ...func(*ssm.Options)) (*ssm.DeleteParameterOutput, error)
}

// SSMCredentialStore keeps the calendar token as a SecureString parameter.
type SSMCredentialStore struct {
	api  ssmAPI
	name string
}

func NewSSMCredentialStore(api ssmAPI, name string) (*SSMCredentialStore, error) {
	if api == nil {
		return nil, errors.New("credential store: api must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("credential store: parameter name is required")
	}
	return &SSMCredentialStore{api: api, name: name}, nil
}

func (s *SSMCredentialStore) Load(ctx context.Context) (*oauth2.Token, error) {
	out, err := s.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(s.name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return nil, calendar.ErrNoCredentials
		}
		return nil, fmt.Errorf("credential store: get parameter %q: %w", s.name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return nil, errors.New("credential store: parameter missing value")
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(*out.Parameter.Value), &tok); err != nil {
		return nil, fmt.Errorf("credential store: decode token: %w", err)
	}
	return &tok, nil
}

func (s *SSMCredentialStore) Save(ctx context.Context, tok *oauth2.Token) error {
	if tok == nil {
		return errors.New("credential store: token is nil")
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("credential store: encode token: %w", err)
	}
	_, err = s.api.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(s.name),
		Value:     aws.String(string(raw)),
		Type:      types.ParameterTypeSecureString,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("credential store: put parameter %q: %w", s.name, err)
	}
	return nil
}

func (s *SSMCredentialStore) Delete(ctx context.Context) error {
	_, err := s.api.DeleteParameter(ctx, &ssm.DeleteParameterInput{Name: aws.String(s.name)})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("credential store: delete parameter %q: %w", s.name, err)
	}
	return nil
}
