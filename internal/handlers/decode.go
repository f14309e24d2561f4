package handlers

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/outofoffice3/aws-samples/go-keyid-toolbox/internal/keyid"
	"github.com/outofoffice3/aws-samples/go-keyid-toolbox/internal/shared"
)

type Handler interface {
	Handle(ctx context.Context, event DecodeEvent) (DecodeResponse, error)
}

type _DecodeHandler struct {
	logIncomingEvent bool // log the raw event, off by default since key ids are sensitive
}

type DecodeEvent struct {
	AccessKeyIds []string `json:"accessKeyIds"`
}

type DecodeResult struct {
	AccessKeyId  string `json:"accessKeyId"` // redacted copy of the input key id
	AccountId    string `json:"accountId,omitempty"`
	ResourceType string `json:"resourceType,omitempty"`
	Error        string `json:"error,omitempty"`
}

type DecodeResponse struct {
	Results []DecodeResult `json:"results"`
}

func NewDecodeHandler() (Handler, error) {
	return &_DecodeHandler{
		logIncomingEvent: os.Getenv(shared.EnvLogIncomingEvent) == "true",
	}, nil
}

// Handle decodes every access key id in the event.  Individual key ids that
// fail validation are reported in their result entry instead of failing the
// whole invocation.
func (h *_DecodeHandler) Handle(ctx context.Context, event DecodeEvent) (DecodeResponse, error) {
	if h.logIncomingEvent {
		log.Printf("incoming event : [%+v]\n", event)
	}

	if len(event.AccessKeyIds) == 0 {
		return DecodeResponse{}, errors.New("event contains no access key ids")
	}

	response := DecodeResponse{Results: make([]DecodeResult, 0, len(event.AccessKeyIds))}
	for _, accessKeyId := range event.AccessKeyIds {
		if err := ctx.Err(); err != nil {
			return response, err
		}

		result := DecodeResult{AccessKeyId: shared.RedactKeyId(accessKeyId)}

		accountId, err := keyid.GetAwsAccountId(accessKeyId)
		if err != nil {
			result.Error = err.Error()
			log.Printf("error decoding key id [%v] : [%v]\n", result.AccessKeyId, err.Error())
		} else {
			result.AccountId = accountId
		}

		// resource type is best effort context, a decode failure above does
		// not prevent classifying the prefix
		if resourceType, err := keyid.GetAssociatedResourceType(accessKeyId); err == nil {
			result.ResourceType = resourceType
		}

		response.Results = append(response.Results, result)
	}

	return response, nil
}
