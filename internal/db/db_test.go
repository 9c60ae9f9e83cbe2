package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaDeclaresTables(t *testing.T) {
	for _, table := range []string{"interview_sessions", "interview_audit", "questions"} {
		assert.Contains(t, Schema, "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Contains(t, Schema, "UNIQUE (session_id, sequence)")
}

func TestNullableLimit(t *testing.T) {
	assert.Nil(t, nullableLimit(0))
	assert.Nil(t, nullableLimit(-3))
	if got := nullableLimit(25); assert.NotNil(t, got) {
		assert.Equal(t, 25, *got)
	}
}

func TestNonNil(t *testing.T) {
	assert.Equal(t, []string{}, nonNil(nil))
	assert.Equal(t, []string{"go"}, nonNil([]string{"go"}))
}
