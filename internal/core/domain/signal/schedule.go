// internal/core/domain/signal/schedule.go
package signal

import "time"

// Порог принятия решения: если до границы минуты остается меньше 30 секунд,
// исполнение на ближайшей границе рискует опоздать, поэтому берется запас
// в одну дополнительную минуту. Константа дизайна, не настройка.
const inferenceThresholdSeconds = 30

// ScheduleExecution вычисляет время исполнения для сигнала без явного
// времени. Возвращает компоненты настенного времени площадки, секунды
// всегда 0. Переходы через границу часа и суток заворачиваются по модулю.
func ScheduleExecution(arrivedAt time.Time) (hour, minute, second int) {
	secondsIntoMinute := arrivedAt.Second()
	remaining := 60 - secondsIntoMinute

	if remaining >= inferenceThresholdSeconds {
		// Исполнение на ближайшей границе минуты (15:20:28 -> 15:21:00)
		minute = (arrivedAt.Minute() + 1) % 60
		hour = arrivedAt.Hour()
		if arrivedAt.Minute() == 59 {
			hour++
		}
		hour = hour % 24
	} else {
		// Слишком близко к границе - пропускаем минуту (15:20:32 -> 15:22:00)
		minute = (arrivedAt.Minute() + 2) % 60
		hour = (arrivedAt.Hour() + (arrivedAt.Minute()+2)/60) % 24
	}

	return hour, minute, 0
}
