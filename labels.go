package main

import "fmt"

// LabelCategory names one family of generated labels. Each category has its
// own counter, so labels read endif_1, while_1, string_1, ...
type LabelCategory string

const (
	LabelElse     LabelCategory = "else"
	LabelEndIf    LabelCategory = "endif"
	LabelWhile    LabelCategory = "while"
	LabelEndWhile LabelCategory = "endwhile"
	LabelFor      LabelCategory = "for"
	LabelEndFor   LabelCategory = "endfor"
	LabelString   LabelCategory = "string"
	LabelFloat    LabelCategory = "float"
	LabelInt      LabelCategory = "int"
)

// Literal is one interned read-only data entry.
type Literal struct {
	Category LabelCategory
	Payload  string
	Label    string
}

type literalKey struct {
	category LabelCategory
	payload  string
}

// Labels hands out program-wide unique labels and interns literals. One
// value lives for a whole compilation and is shared by every function.
type Labels struct {
	counters map[LabelCategory]int
	interned map[literalKey]int
	literals []Literal
}

func NewLabels() *Labels {
	return &Labels{
		counters: make(map[LabelCategory]int),
		interned: make(map[literalKey]int),
	}
}

// New returns the next label of a category. Labels are never reused.
func (l *Labels) New(category LabelCategory) string {
	l.counters[category]++
	return fmt.Sprintf("%s_%d", category, l.counters[category])
}

// Intern returns the label holding payload, allocating one the first time
// the (category, payload) pair is seen.
func (l *Labels) Intern(category LabelCategory, payload string) string {
	key := literalKey{category, payload}
	if i, ok := l.interned[key]; ok {
		return l.literals[i].Label
	}
	label := l.New(category)
	l.interned[key] = len(l.literals)
	l.literals = append(l.literals, Literal{Category: category, Payload: payload, Label: label})
	return label
}

// Literals returns every interned literal in interning order.
func (l *Labels) Literals() []Literal {
	return l.literals
}
