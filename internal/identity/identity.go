package identity

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/outofoffice3/aws-samples/go-keyid-toolbox/internal/keyid"
	"github.com/outofoffice3/aws-samples/go-keyid-toolbox/internal/shared"
)

// CallerIdentity describes the principal behind the resolved credentials,
// derived entirely from the access key id without calling AWS.
type CallerIdentity struct {
	AccessKeyId  string // redacted access key id
	AccountId    string // account id decoded from the key id
	ResourceType string // resource type associated with the key prefix
	Source       string // credential source reported by the sdk
}

type Resolver interface {
	// resolve the caller identity from local credential material
	Resolve(ctx context.Context) (CallerIdentity, error)
}

type _Resolver struct {
	credentialsProvider aws.CredentialsProvider
}

type ResolverConfig struct {
	Profile     string // optional shared config profile to resolve credentials from
	AccessKeyId string // optional explicit key id, takes precedence over the credential chain

	// optional override of the credential source, used by tests
	CredentialsProvider aws.CredentialsProvider
}

func NewResolver(ctx context.Context, config ResolverConfig) (Resolver, error) {
	if config.CredentialsProvider != nil {
		return &_Resolver{credentialsProvider: config.CredentialsProvider}, nil
	}

	// an explicit key id needs no secret material, a static provider carries
	// it through the same code path as chain resolved credentials
	if config.AccessKeyId != "" {
		if !shared.IsValidAccessKeyId(config.AccessKeyId) {
			return nil, errors.New("invalid access key id format")
		}
		return &_Resolver{
			credentialsProvider: credentials.NewStaticCredentialsProvider(config.AccessKeyId, "", ""),
		}, nil
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{}
	if config.Profile != "" {
		loadOptions = append(loadOptions, awsconfig.WithSharedConfigProfile(config.Profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, errors.New("failed to load aws config : " + err.Error())
	}
	if cfg.Credentials == nil {
		return nil, errors.New("no credentials configured")
	}

	return &_Resolver{credentialsProvider: cfg.Credentials}, nil
}

// Resolve retrieves the configured credentials locally and decodes account id
// and resource type from the access key id.  No request is made to STS.
func (r *_Resolver) Resolve(ctx context.Context) (CallerIdentity, error) {
	creds, err := r.credentialsProvider.Retrieve(ctx)
	if err != nil {
		return CallerIdentity{}, errors.New("failed to retrieve credentials : " + err.Error())
	}
	if creds.AccessKeyID == "" {
		return CallerIdentity{}, errors.New("resolved credentials carry no access key id")
	}

	identity := CallerIdentity{
		AccessKeyId: shared.RedactKeyId(creds.AccessKeyID),
		Source:      creds.Source,
	}

	accountId, err := keyid.GetAwsAccountId(creds.AccessKeyID)
	if err != nil {
		return CallerIdentity{}, fmt.Errorf("cannot decode account id from key id [%v]: %w",
			identity.AccessKeyId, err)
	}
	identity.AccountId = accountId

	// prefix classification is best effort, an unknown prefix still yields
	// a usable account id
	resourceType, err := keyid.GetAssociatedResourceType(creds.AccessKeyID)
	if err != nil {
		log.Printf("unrecognized key id prefix for [%v] : [%v]\n", identity.AccessKeyId, err.Error())
	} else {
		identity.ResourceType = resourceType
	}

	return identity, nil
}
