package xid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func New(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	if prefix == "" {
		return id.String()
	}
	return fmt.Sprintf("%s-%s", prefix, strings.ReplaceAll(id.String(), "-", ""))
}
