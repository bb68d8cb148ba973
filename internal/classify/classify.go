// Package classify maps round numbers to their color and size classes.
package classify

import (
	"fmt"

	"github.com/Alias1177/SignalBot/models"
)

const (
	MinNumber = 0
	MaxNumber = 9
)

// colorTable is fixed by the game rules and must not change
var colorTable = [...]models.ColorClass{
	0: models.ColorRedViolet,
	1: models.ColorGreen,
	2: models.ColorRed,
	3: models.ColorGreen,
	4: models.ColorRed,
	5: models.ColorGreenViolet,
	6: models.ColorRed,
	7: models.ColorGreen,
	8: models.ColorRed,
	9: models.ColorGreen,
}

// Validate fails with ErrInvalidNumber when n is outside 0-9
func Validate(n int) error {
	if n < MinNumber || n > MaxNumber {
		return models.Fail(models.ErrInvalidNumber, "classify", fmt.Errorf("%d is outside %d-%d", n, MinNumber, MaxNumber))
	}
	return nil
}

// Size returns SMALL for 0-4 and BIG for 5-9
func Size(n int) models.SizeClass {
	if n >= 5 {
		return models.SizeBig
	}
	return models.SizeSmall
}

// Color returns the color class of n
func Color(n int) (models.ColorClass, error) {
	if err := Validate(n); err != nil {
		return "", err
	}
	return colorTable[n], nil
}

// Classify returns both classes of n
func Classify(n int) (models.ColorClass, models.SizeClass, error) {
	color, err := Color(n)
	if err != nil {
		return "", "", err
	}
	return color, Size(n), nil
}

// NextNumber is the successor rule used for predictions
func NextNumber(n int) int {
	return ((n+1)%10 + 10) % 10
}
