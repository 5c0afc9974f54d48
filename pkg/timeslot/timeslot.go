package timeslot

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	MinutesPerDay  = 24 * 60
	minutesPerHour = 60
)

var (
	ErrInvalidLabel    = errors.New("invalid time label")
	ErrInvalidRange    = errors.New("invalid time range")
	ErrInvalidInterval = errors.New("interval must be positive")

	reLabel = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})\s*(AM|PM)$`)
)

// Parse converts a label such as "10:00 AM" or "2:30 pm" into minutes from midnight.
func Parse(label string) (int, error) {
	m := reLabel.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}

	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	if hours < 1 || hours > 12 || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}

	period := strings.ToUpper(m[3])
	if period == "PM" && hours != 12 {
		hours += 12
	}
	if period == "AM" && hours == 12 {
		hours = 0
	}

	return hours*minutesPerHour + minutes, nil
}

// Format renders minutes from midnight as "h:mm AM|PM".
func Format(totalMinutes int) string {
	totalMinutes = ((totalMinutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	hours := totalMinutes / minutesPerHour
	minutes := totalMinutes % minutesPerHour

	period := "AM"
	if hours >= 12 {
		period = "PM"
	}
	if hours > 12 {
		hours -= 12
	}
	if hours == 0 {
		hours = 12
	}

	return fmt.Sprintf("%d:%02d %s", hours, minutes, period)
}

func Normalize(label string) (string, error) {
	minutes, err := Parse(label)
	if err != nil {
		return "", err
	}
	return Format(minutes), nil
}

func IsValid(label string) bool {
	_, err := Parse(label)
	return err == nil
}

// Generate returns every label from start to end inclusive, stepping by interval minutes.
func Generate(start, end string, interval int) ([]string, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}

	startMin, err := Parse(start)
	if err != nil {
		return nil, err
	}
	endMin, err := Parse(end)
	if err != nil {
		return nil, err
	}
	if startMin >= endMin {
		return nil, fmt.Errorf("%w: %s is not before %s", ErrInvalidRange, start, end)
	}

	labels := make([]string, 0, (endMin-startMin)/interval+1)
	for m := startMin; m <= endMin; m += interval {
		labels = append(labels, Format(m))
	}
	return labels, nil
}

// Sort orders labels chronologically. Unparsable labels go last, keeping their order.
func Sort(labels []string) []string {
	out := make([]string, len(labels))
	copy(out, labels)

	sort.SliceStable(out, func(i, j int) bool {
		a, errA := Parse(out[i])
		b, errB := Parse(out[j])
		switch {
		case errA != nil:
			return false
		case errB != nil:
			return true
		default:
			return a < b
		}
	})
	return out
}

func ValidDate(date string) bool {
	_, err := time.Parse(DateLayout, date)
	return err == nil
}
