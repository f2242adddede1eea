package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/kipimo/core"
)

func TestCheckRequest(t *testing.T) {
	assert.NoError(t, checkRequest(studentRequest{UserID: 7}))
	assert.NoError(t, checkRequest(investorRequest{InvestorID: "inv-1"}))

	err := checkRequest(studentRequest{})
	if verr, ok := err.(*core.ValidationError); assert.True(t, ok) {
		if assert.Len(t, verr.Fields, 1) {
			assert.Equal(t, "user", verr.Fields[0].Field)
		}
	}

	err = checkRequest(teacherRequest{TeacherID: -3})
	if verr, ok := err.(*core.ValidationError); assert.True(t, ok) {
		assert.Len(t, verr.Fields, 1)
	}
}
