package repository

import (
	"fmt"

	slotserrors "testdrive/internal/slots/errors"
)

func invalidID(id string) error {
	return fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
}
