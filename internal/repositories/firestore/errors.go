package firestore

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func notFoundError(id string) error {
	return status.Errorf(codes.NotFound, "document %s not found", id)
}
