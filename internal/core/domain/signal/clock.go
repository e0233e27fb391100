// internal/core/domain/signal/clock.go
package signal

import (
	"fmt"
	"time"
)

// Clock - источник настенного времени торговой площадки
type Clock interface {
	Now() time.Time
	ToVenue(t time.Time) time.Time
}

// VenueClock - часы с фиксированным смещением от UTC.
// Площадка торгует по WIB (UTC+7), смещение настраивается.
type VenueClock struct {
	loc *time.Location
}

func NewVenueClock(offsetHours int) *VenueClock {
	name := fmt.Sprintf("UTC+%d", offsetHours)
	if offsetHours < 0 {
		name = fmt.Sprintf("UTC%d", offsetHours)
	}
	if offsetHours == 7 {
		name = "WIB"
	}
	return &VenueClock{loc: time.FixedZone(name, offsetHours*3600)}
}

// Now возвращает текущее время в поясе площадки
func (c *VenueClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// ToVenue переводит метку времени в пояс площадки
func (c *VenueClock) ToVenue(t time.Time) time.Time {
	return t.In(c.loc)
}
