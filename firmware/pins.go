//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	SAMPLE_INTERVAL_MS = 1 // ADC read interval in milliseconds
	NUM_SAMPLES        = 4 // Readings averaged per output line

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 10   // Bits per reported value (10-bit = 0-1023), matches filter.resolution

	// Potentiometer wiper
	PIN_POT = machine.A1

	// Serial configuration
	// Format "unix_micros,value\n", e.g. "1234567890123456,1023\n" = 22 bytes max per line
	// 250 lines/sec * 22 bytes = 5,500 bytes/sec, 115200 baud gives ~2x headroom
	UART_BAUD_RATE = 115200
)
