//go:build tinygo || baremetal

package transport

import (
	"time"
	"unsafe"

	"device/nrf"
)

// maxFrameSize mirrors frame.MaxFrameSize without importing internal/frame,
// keeping this build-tag-gated file's dependency surface to the radio
// register package alone.
const maxFrameSize = 32

// NRFDriver is a Driver backed by the real NRF52 radio peripheral,
// adapted from the teacher's driver/nrf.Driver: same register sequencing
// for StartHFCLK/ConfigureRadio/Tx/Rx, generalized from the teacher's
// fixed pairing address to spec.md's per-node addressing (each mesh
// address becomes this radio's PREFIX0 byte against a shared BASE0).
type NRFDriver struct {
	buffer  [maxFrameSize]byte
	base    uint32
	channel uint8
	pending []byte
}

// NewNRFDriver brings up the radio on baseAddress/channel with no address
// assigned yet; SetAddress must be called once an id is known (spec §4.4
// ACQUIRE_ID) before Send/Receive are meaningful.
func NewNRFDriver(baseAddress uint32, channel uint8) *NRFDriver {
	d := &NRFDriver{base: baseAddress, channel: channel}
	startHFCLK()
	return d
}

func (d *NRFDriver) SetAddress(nodeID byte) error {
	return configureRadio(d.base, nodeID, d.channel)
}

func (d *NRFDriver) Send(frame []byte) error {
	copy(d.buffer[:], frame)
	nrf.RADIO.PACKETPTR.Set(uint32(uintptr(unsafe.Pointer(&d.buffer[0]))))
	nrf.RADIO.EVENTS_READY.Set(0)
	nrf.RADIO.EVENTS_END.Set(0)
	nrf.RADIO.TASKS_TXEN.Set(1)
	for nrf.RADIO.EVENTS_READY.Get() == 0 {
	}
	nrf.RADIO.TASKS_START.Set(1)
	for nrf.RADIO.EVENTS_END.Get() == 0 {
	}
	nrf.RADIO.TASKS_DISABLE.Set(1)
	for nrf.RADIO.STATE.Get() != nrf.RADIO_STATE_STATE_Disabled {
	}
	return nil
}

func (d *NRFDriver) Available() bool {
	if d.pending != nil {
		return true
	}
	data, err := d.receiveRaw(0)
	if err != nil {
		return false
	}
	d.pending = data
	return true
}

func (d *NRFDriver) Receive(timeout time.Duration) ([]byte, error) {
	if d.pending != nil {
		data := d.pending
		d.pending = nil
		return data, nil
	}
	return d.receiveRaw(timeout)
}

func (d *NRFDriver) receiveRaw(timeout time.Duration) ([]byte, error) {
	nrf.RADIO.PACKETPTR.Set(uint32(uintptr(unsafe.Pointer(&d.buffer[0]))))
	nrf.RADIO.EVENTS_READY.Set(0)
	nrf.RADIO.EVENTS_END.Set(0)
	nrf.RADIO.TASKS_RXEN.Set(1)
	for nrf.RADIO.EVENTS_READY.Get() == 0 {
	}
	nrf.RADIO.TASKS_START.Set(1)
	start := time.Now()
	for nrf.RADIO.EVENTS_END.Get() == 0 {
		if time.Since(start) > timeout {
			nrf.RADIO.TASKS_DISABLE.Set(1)
			for nrf.RADIO.STATE.Get() != nrf.RADIO_STATE_STATE_Disabled {
			}
			return nil, ErrTimeout
		}
	}
	nrf.RADIO.TASKS_DISABLE.Set(1)
	for nrf.RADIO.STATE.Get() != nrf.RADIO_STATE_STATE_Disabled {
	}
	out := make([]byte, maxFrameSize)
	copy(out, d.buffer[:])
	return out, nil
}

// PowerDown disables the radio peripheral (TASKS_DISABLE) between sleep
// windows (spec §4.8). The HF clock started by NewNRFDriver is left
// running.
func (d *NRFDriver) PowerDown() {
	nrf.RADIO.TASKS_DISABLE.Set(1)
}

func startHFCLK() {
	nrf.CLOCK.EVENTS_HFCLKSTARTED.Set(0)
	nrf.CLOCK.TASKS_HFCLKSTART.Set(1)
	for nrf.CLOCK.EVENTS_HFCLKSTARTED.Get() == 0 {
	}
}

func configureRadio(address uint32, prefix byte, channel uint8) error {
	if channel > 125 {
		return ErrInvalidChannel
	}

	nrf.RADIO.POWER.Set(1)
	nrf.RADIO.MODE.Set(nrf.RADIO_MODE_MODE_Nrf_1Mbit)
	nrf.RADIO.TXPOWER.Set(nrf.RADIO_TXPOWER_TXPOWER_0dBm)
	nrf.RADIO.FREQUENCY.Set(uint32(channel))

	nrf.RADIO.BASE0.Set(address)
	nrf.RADIO.PREFIX0.Set(uint32(prefix))
	nrf.RADIO.TXADDRESS.Set(0)
	nrf.RADIO.RXADDRESSES.Set(1)

	nrf.RADIO.PCNF0.Set(
		(8 << nrf.RADIO_PCNF0_LFLEN_Pos) |
			(0 << nrf.RADIO_PCNF0_S0LEN_Pos) |
			(0 << nrf.RADIO_PCNF0_S1LEN_Pos))

	nrf.RADIO.PCNF1.Set(
		(maxFrameSize << nrf.RADIO_PCNF1_MAXLEN_Pos) |
			(0 << nrf.RADIO_PCNF1_STATLEN_Pos) |
			(3 << nrf.RADIO_PCNF1_BALEN_Pos) |
			(nrf.RADIO_PCNF1_ENDIAN_Little << nrf.RADIO_PCNF1_ENDIAN_Pos))

	nrf.RADIO.CRCCNF.Set(1)
	nrf.RADIO.CRCINIT.Set(0xFF)
	nrf.RADIO.CRCPOLY.Set(0x107)

	return nil
}
