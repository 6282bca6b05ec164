package ra8875

// SPI cycle prefixes. Every RA8875 SPI transfer starts with one of these,
// selecting between the command (register index) and data spaces.
const (
	cycleDataWrite = 0x00
	cycleDataRead  = 0x40
	cycleCmdWrite  = 0x80
	cycleStatRead  = 0xC0
)

// Register subset used by this driver.
const (
	regPWRR = 0x01 // Power and display control
	regMRWC = 0x02 // Memory read/write command

	// Active window
	regHSAW0 = 0x30 // Horizontal start, low
	regHSAW1 = 0x31 // Horizontal start, high
	regVSAW0 = 0x32 // Vertical start, low
	regVSAW1 = 0x33 // Vertical start, high
	regHEAW0 = 0x34 // Horizontal end, low
	regHEAW1 = 0x35 // Horizontal end, high
	regVEAW0 = 0x36 // Vertical end, low
	regVEAW1 = 0x37 // Vertical end, high

	// Memory write cursor
	regMWCR0 = 0x40
	regCURH0 = 0x46
	regCURH1 = 0x47
	regCURV0 = 0x48
	regCURV1 = 0x49

	// Resistive touch panel
	regTPCR0 = 0x70 // Touch panel control 0
	regTPCR1 = 0x71 // Touch panel control 1
	regTPXH  = 0x72 // Touch X high bits [9:2]
	regTPYH  = 0x73 // Touch Y high bits [9:2]
	regTPXYL = 0x74 // Touch X/Y low bits [1:0]

	// Interrupt control
	regINTC1 = 0xF0 // Interrupt enable
	regINTC2 = 0xF1 // Interrupt flags (write 1 to clear)
)

// PWRR bits.
const (
	pwrrDisplayOn = 0x80
	pwrrSleep     = 0x02
)

// TPCR0 bits.
const (
	tpEnable           = 0x80
	tpAdcSampleDefault = 0x30 // 16384 system clocks
	tpAdcClkDivDefault = 0x04 // system clock / 16
)

// TPCR1 bits.
const (
	tpModeAuto   = 0x00
	tpDebounceOn = 0x04
)

// Interrupt bits shared by INTC1/INTC2.
const intTP = 0x04
