package browser

import "fmt"

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// MaxOptions is the number of labels the option scheme can express:
// 26 single letters followed by 26*26 letter pairs.
const MaxOptions = 26 + 26*26

// LabelOf returns the option label for a zero-based index.
//
// Indices 0-25 map to A-Z. From 26 on, labels are letter pairs computed from
// a flat offset of 26, so 26 is "AA", 51 is "AZ" and 52 is "BA".
func LabelOf(index int) (string, error) {
	if index < 0 || index >= MaxOptions {
		return "", fmt.Errorf("%w: %d", ErrLabelRange, index)
	}
	if index < 26 {
		return alphabet[index : index+1], nil
	}
	offset := index - 26
	return string([]byte{alphabet[offset/26], alphabet[offset%26]}), nil
}

// IndexOf is the inverse of LabelOf.
func IndexOf(label string) (int, error) {
	switch len(label) {
	case 1:
		first, ok := letterIndex(label[0])
		if !ok {
			return 0, fmt.Errorf("invalid option label %q", label)
		}
		return first, nil
	case 2:
		first, ok1 := letterIndex(label[0])
		second, ok2 := letterIndex(label[1])
		if !ok1 || !ok2 {
			return 0, fmt.Errorf("invalid option label %q", label)
		}
		return 26 + first*26 + second, nil
	default:
		return 0, fmt.Errorf("invalid option label %q", label)
	}
}

func letterIndex(c byte) (int, bool) {
	if c < 'A' || c > 'Z' {
		return 0, false
	}
	return int(c - 'A'), true
}
