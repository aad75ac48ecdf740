// ABOUTME: Line-fitting calibration from raw ADC counts to millivolts
// ABOUTME: Integer gain ratio plus offset, fixed at construction
package calib

import (
	"errors"
	"fmt"
)

// ErrCoeff is returned by New for an unusable coefficient set.
var ErrCoeff = errors.New("invalid calibration coefficients")

// LineFitting converts raw readings to millivolts with a linear fit:
// mv = raw * gainNum / gainDen + offset. Coefficients come from whatever
// characterization the surrounding application trusts; this type only
// applies them.
type LineFitting struct {
	gainNum int
	gainDen int
	offset  int
}

func New(gainNum, gainDen, offset int) (*LineFitting, error) {
	if gainDen == 0 {
		return nil, fmt.Errorf("calib: %w: zero gain denominator", ErrCoeff)
	}
	return &LineFitting{gainNum: gainNum, gainDen: gainDen, offset: offset}, nil
}

func (l *LineFitting) Convert(raw uint16) (int, error) {
	return int(raw)*l.gainNum/l.gainDen + l.offset, nil
}
