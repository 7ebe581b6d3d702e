package main

import (
	"fmt"

	"github.com/dlclark/regexp2"
)

// Type is a declared type keyword.
type Type string

const (
	TypeInteger  Type = "inteiro"
	TypeReal     Type = "real"
	TypeBoolean  Type = "logico"
	TypeChar     Type = "caracter"
	TypeFunction Type = "funcao"
	TypeVoid     Type = "vazio"
)

// Size returns the number of frame bytes a variable of type t occupies.
func (t Type) Size() int {
	switch t {
	case TypeInteger:
		return 4
	case TypeReal:
		return 8
	case TypeBoolean, TypeChar:
		return 1
	}
	panic(fmt.Sprintf("type %q has no storage size", t))
}

// IsNumeric reports whether arithmetic accepts t.
func (t Type) IsNumeric() bool {
	return t == TypeInteger || t == TypeReal
}

// IsVariableType reports whether t may be used for a parameter or local.
func (t Type) IsVariableType() bool {
	switch t {
	case TypeInteger, TypeReal, TypeBoolean, TypeChar:
		return true
	}
	return false
}

const (
	trueKeyword  = "verdadeiro"
	falseKeyword = "falso"
)

// The literal grammar of the front end: sign, digits, optional fraction,
// optional exponent. Only plain digit runs are integral.
var (
	numberPattern   = regexp2.MustCompile(`^[+-]?[0-9]+(\.[0-9]+)?([Ee][+-]?[0-9]+)?$`, regexp2.None)
	integralPattern = regexp2.MustCompile(`^[+-]?[0-9]+$`, regexp2.None)
)

// IsNumberLiteral reports whether text is a well-formed number literal.
func IsNumberLiteral(text string) bool {
	ok, err := numberPattern.MatchString(text)
	return err == nil && ok
}

// NumberLiteralType classifies a number literal as inteiro or real.
func NumberLiteralType(text string) Type {
	if ok, err := integralPattern.MatchString(text); err == nil && ok {
		return TypeInteger
	}
	return TypeReal
}
