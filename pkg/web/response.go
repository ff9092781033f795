package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
)

type httpStatus interface {
	HTTPStatus() int
}

// StatusCode reports the status code Respond will write for the data model.
func StatusCode(dataModel Encoder) int {
	switch v := dataModel.(type) {
	case httpStatus:
		return v.HTTPStatus()
	case error:
		return http.StatusInternalServerError
	default:
		if dataModel == nil {
			return http.StatusNoContent
		}
		return http.StatusOK
	}
}

// Respond sends a response to the client.
func Respond(ctx context.Context, w http.ResponseWriter, dataModel Encoder) error {

	// If the context has been canceled, it means the client is no longer
	// waiting for a response.
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.New("client disconnected, do not send response")
		}
	}

	statusCode := StatusCode(dataModel)

	_, span := addSpan(ctx, "web.send.response", attribute.Int("status", statusCode))
	defer span.End()

	if statusCode == http.StatusNoContent {
		w.WriteHeader(statusCode)
		return nil
	}

	data, contentType, err := dataModel.Encode()
	if err != nil {
		return fmt.Errorf("respond: encode: %w", err)
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(statusCode)

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("respond: write: %w", err)
	}

	return nil
}
