package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/outofoffice3/aws-samples/go-keyid-toolbox/internal/handlers"
)

func handler(ctx context.Context, event handlers.DecodeEvent) (handlers.DecodeResponse, error) {
	decodeHandler, err := handlers.NewDecodeHandler()
	if err != nil {
		log.Printf("error : [%v]\n", err.Error())
		return handlers.DecodeResponse{}, err
	}

	response, err := decodeHandler.Handle(ctx, event)
	if err != nil {
		log.Printf("error : [%v]\n", err.Error())
		return handlers.DecodeResponse{}, err
	}

	return response, nil
}

func main() {
	lambda.Start(handler)
}
