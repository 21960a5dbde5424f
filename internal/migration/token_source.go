package migration

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	tokenSourceSeparatorConstant            = ":"
	environmentTokenSourceValueConstant     = "env"
	fileTokenSourceValueConstant            = "file"
	tokenSourceMissingMessageConstant       = "token source must be provided"
	environmentNameMissingMessageConstant   = "environment variable name must be provided"
	tokenFilePathMissingMessageConstant     = "token file path must be provided"
	environmentTokenMissingTemplateConstant = "environment variable %s is not set"
	tokenFileReadTemplateConstant           = "unable to read token file %s: %w"
	tokenFileEmptyTemplateConstant          = "token file %s is empty"
	unsupportedTokenSourceTemplateConstant  = "unsupported token source type %q"
)

// TokenSourceType enumerates the supported credential retrieval mechanisms.
type TokenSourceType string

// Token source type enumerations.
const (
	TokenSourceTypeEnvironment TokenSourceType = TokenSourceType(environmentTokenSourceValueConstant)
	TokenSourceTypeFile        TokenSourceType = TokenSourceType(fileTokenSourceValueConstant)
)

// TokenSource locates one scope credential.
type TokenSource struct {
	Type      TokenSourceType
	Reference string
}

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// FileReader reads the contents of a file path.
type FileReader func(path string) ([]byte, error)

// TokenResolver retrieves scope credentials from configured sources.
type TokenResolver struct {
	environmentLookup EnvironmentLookup
	fileReader        FileReader
}

// NewTokenResolver creates a token resolver with optional dependency overrides.
func NewTokenResolver(environmentLookup EnvironmentLookup, fileReader FileReader) *TokenResolver {
	resolvedEnvironmentLookup := environmentLookup
	if resolvedEnvironmentLookup == nil {
		resolvedEnvironmentLookup = os.LookupEnv
	}

	resolvedFileReader := fileReader
	if resolvedFileReader == nil {
		resolvedFileReader = os.ReadFile
	}

	return &TokenResolver{
		environmentLookup: resolvedEnvironmentLookup,
		fileReader:        resolvedFileReader,
	}
}

// ParseTokenSource interprets textual token source declarations of the forms
// "env:NAME", "file:PATH", or a bare environment variable name.
func ParseTokenSource(sourceValue string) (TokenSource, error) {
	trimmedValue := strings.TrimSpace(sourceValue)
	if len(trimmedValue) == 0 {
		return TokenSource{}, errors.New(tokenSourceMissingMessageConstant)
	}

	sourceComponents := strings.SplitN(trimmedValue, tokenSourceSeparatorConstant, 2)
	if len(sourceComponents) == 1 {
		return TokenSource{Type: TokenSourceTypeEnvironment, Reference: trimmedValue}, nil
	}

	sourceType := strings.ToLower(strings.TrimSpace(sourceComponents[0]))
	sourceReference := strings.TrimSpace(sourceComponents[1])

	switch sourceType {
	case environmentTokenSourceValueConstant:
		if len(sourceReference) == 0 {
			return TokenSource{}, errors.New(environmentNameMissingMessageConstant)
		}
		return TokenSource{Type: TokenSourceTypeEnvironment, Reference: sourceReference}, nil
	case fileTokenSourceValueConstant:
		if len(sourceReference) == 0 {
			return TokenSource{}, errors.New(tokenFilePathMissingMessageConstant)
		}
		return TokenSource{Type: TokenSourceTypeFile, Reference: sourceReference}, nil
	default:
		return TokenSource{}, fmt.Errorf(unsupportedTokenSourceTemplateConstant, sourceType)
	}
}

// ResolveToken produces the credential a token source points at. Resolved
// values are trimmed; blank credentials are rejected.
func (resolver *TokenResolver) ResolveToken(tokenSource TokenSource) (string, error) {
	switch tokenSource.Type {
	case TokenSourceTypeEnvironment:
		environmentValue, valueFound := resolver.environmentLookup(tokenSource.Reference)
		if !valueFound {
			return "", fmt.Errorf(environmentTokenMissingTemplateConstant, tokenSource.Reference)
		}
		trimmedValue := strings.TrimSpace(environmentValue)
		if len(trimmedValue) == 0 {
			return "", fmt.Errorf(environmentTokenMissingTemplateConstant, tokenSource.Reference)
		}
		return trimmedValue, nil
	case TokenSourceTypeFile:
		fileContents, readError := resolver.fileReader(tokenSource.Reference)
		if readError != nil {
			return "", fmt.Errorf(tokenFileReadTemplateConstant, tokenSource.Reference, readError)
		}
		trimmedValue := strings.TrimSpace(string(fileContents))
		if len(trimmedValue) == 0 {
			return "", fmt.Errorf(tokenFileEmptyTemplateConstant, tokenSource.Reference)
		}
		return trimmedValue, nil
	default:
		return "", fmt.Errorf(unsupportedTokenSourceTemplateConstant, tokenSource.Type)
	}
}
