//go:build tinygo

//go:generate tinygo flash -target=xiao

// Firmware streams averaged potentiometer readings over the serial port in the
// "unix_micros,value" line format read by adc.Serial.
package main

import (
	"machine"
	"time"
)

var (
	adcPot machine.ADC
	uart   = machine.UART0

	// ADC averaging - running sum and count
	potSum   uint32
	potCount int

	// Timing
	lastADCRead time.Time
)

func main() {
	PIN_POT.Configure(machine.PinConfig{Mode: machine.PinInput})

	adcPot = machine.ADC{Pin: PIN_POT}
	adcPot.Configure(machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	})

	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	lastADCRead = time.Now()

	for {
		now := time.Now()

		if now.Sub(lastADCRead) >= time.Duration(SAMPLE_INTERVAL_MS)*time.Millisecond {
			readPot()
			lastADCRead = now
		}

		if potCount >= NUM_SAMPLES {
			outputAveragedValue(now)
			potSum = 0
			potCount = 0
		}

		time.Sleep(100 * time.Microsecond)
	}
}

// readPot accumulates one reading. Get scales to 16 bits regardless of the
// configured resolution, so the value is shifted back down.
func readPot() {
	value := adcPot.Get() >> (16 - ADC_RESOLUTION)
	potSum += uint32(value)
	potCount++
}

func outputAveragedValue(now time.Time) {
	n := potCount
	if n == 0 {
		n = 1
	}
	avg := uint16((potSum + uint32(n)/2) / uint32(n))

	print(now.UnixNano() / 1000)
	print(",")
	print(avg)
	print("\n")
}
