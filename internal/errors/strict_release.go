//go:build release

package errors

const strictInvariants = false
