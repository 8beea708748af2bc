package clinic

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

type Doctor string

const (
	DoctorUmar    Doctor = "umar"
	DoctorSamreen Doctor = "samreen"
)

// Doctors lists every doctor on the board in display order.
var Doctors = []Doctor{DoctorUmar, DoctorSamreen}

type Period string

const (
	PeriodToday     Period = "today"
	PeriodYesterday Period = "yesterday"
)

var Periods = []Period{PeriodToday, PeriodYesterday}

const (
	localIDPrefix  = "local-"
	frozenIDPrefix = "frozen-"
)

// reservedNumbers is static configuration. The same numbers apply to both periods.
var reservedNumbers = map[Doctor][]int{
	DoctorUmar:    {1, 2, 3, 10, 15, 20},
	DoctorSamreen: {1, 2, 3, 4, 5, 8, 9, 12, 13, 16, 17, 20, 21, 25, 26, 29, 30, 33, 34, 37, 38},
}

type Appointment struct {
	ID            string `json:"id"`
	PatientName   string `json:"patientName"`
	AppointmentNo int    `json:"appointmentNo"`
	Frozen        bool   `json:"frozen"`
}

// PatientStatus is one row of the availability checklist.
type PatientStatus struct {
	Doctor      Doctor `json:"doctor"`
	PatientName string `json:"patientName"`
	IsAvailable bool   `json:"isAvailable"`
}

func ParseDoctor(s string) (Doctor, error) {
	d := Doctor(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := reservedNumbers[d]; !ok {
		return "", fmt.Errorf("unknown doctor %q", s)
	}
	return d, nil
}

func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case PeriodToday, PeriodYesterday:
		return p, nil
	case "":
		return PeriodToday, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// Reserved returns the reserved numbers of a doctor in ascending order.
func Reserved(d Doctor) []int {
	nums := append([]int(nil), reservedNumbers[d]...)
	sort.Ints(nums)
	return nums
}

// ReservedSet returns the reserved numbers of a doctor as a set.
func ReservedSet(d Doctor) map[int]struct{} {
	set := make(map[int]struct{}, len(reservedNumbers[d]))
	for _, n := range reservedNumbers[d] {
		set[n] = struct{}{}
	}
	return set
}

func IsReserved(d Doctor, n int) bool {
	_, ok := ReservedSet(d)[n]
	return ok
}

// NewLocalID returns an id that can never collide with a server-assigned one.
func NewLocalID() string {
	return localIDPrefix + uuid.NewString()
}

func FrozenID(n int) string {
	return frozenIDPrefix + strconv.Itoa(n)
}

func FrozenName(n int) string {
	return fmt.Sprintf("Frozen Appointment %d", n)
}

// FrozenPlaceholder builds the synthetic record standing in for a reserved number.
func FrozenPlaceholder(n int) Appointment {
	return Appointment{
		ID:            FrozenID(n),
		PatientName:   FrozenName(n),
		AppointmentNo: n,
		Frozen:        true,
	}
}

// IsLocalID reports whether id was generated on this side rather than by the server.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix) || strings.HasPrefix(id, frozenIDPrefix)
}
