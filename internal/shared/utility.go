package shared

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
)

// ExtractAWSAccountFromARN takes an ARN and returns the AWS account number.
func ExtractAWSAccountFromARN(identityArn string) (string, error) {
	parsed, err := arn.Parse(identityArn)
	if err != nil {
		return "", fmt.Errorf("invalid ARN: %w", err)
	}
	return parsed.AccountID, nil
}
