package controllers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateEntry(t *testing.T) {
	assert.True(t, isDuplicateEntry(gorm.ErrDuplicatedKey))
	assert.True(t, isDuplicateEntry(fmt.Errorf("create user: %w", gorm.ErrDuplicatedKey)))

	assert.False(t, isDuplicateEntry(nil))
	assert.False(t, isDuplicateEntry(errors.New("connection reset")))
	assert.False(t, isDuplicateEntry(gorm.ErrInvalidTransaction))
}
