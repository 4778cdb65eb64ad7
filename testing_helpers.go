// go-wiznet
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-wiznet.
//
// go-wiznet is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-wiznet is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-wiznet; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package wiznet

import (
	"sync"
	"time"

	"github.com/ZaparooProject/go-wiznet/internal/frame"
	"periph.io/x/conn/v3/gpio"
)

const ringMask = frame.SocketBufferSize - 1

// MockChip is a register level model of socket 0 of a W5500 or W6100 in
// MACRAW mode. It implements Transport so a MAC can drive it, keeps the TX
// and RX rings, answers the identity registers and models the PHY status
// register and the interrupt line.
type MockChip struct {
	ops  *ChipOps
	pin  *MockInterruptPin
	regs map[uint32]byte
	sent [][]byte
	cmds []byte

	readErr  error
	writeErr error
	regErrs  map[uint32]error

	tx [frame.SocketBufferSize]byte
	rx [frame.SocketBufferSize]byte

	reads  map[uint32]int
	writes map[uint32]int

	mu sync.Mutex

	txFreeOverride int
	unstableReads  int
	jitter         uint16

	txRD uint16 // committed TX read pointer
	rxWR uint16 // chip side RX write pointer
	rxRD uint16 // committed RX read pointer

	identity uint16
	ir       byte

	speed  Speed
	duplex Duplex

	link        bool
	open        bool
	loopback    bool
	closed      bool
	cmdStuck    bool
	sendStuck   bool
	resetStuck  bool
	irqAsserted bool
}

// NewMockChip creates a powered up chip of the family described by ops
// with the link down.
func NewMockChip(ops *ChipOps) *MockChip {
	m := &MockChip{
		ops:            ops,
		pin:            NewMockInterruptPin(),
		regs:           make(map[uint32]byte),
		reads:          make(map[uint32]int),
		writes:         make(map[uint32]int),
		txFreeOverride: -1,
		speed:          Speed100M,
		duplex:         DuplexFull,
	}
	if m.isW5500() {
		m.identity = w5500Version
		m.regs[w5500RegPHYCFGR] = 0xB8
	} else {
		m.identity = w6100ChipID
	}
	m.powerOn()
	return m
}

func (m *MockChip) isW5500() bool { return m.ops.Name == "w5500" }

// powerOn loads the register values the chip comes up with
func (m *MockChip) powerOn() {
	if m.isW5500() {
		return
	}
	m.regs[w6100RegVER] = byte(w6100Version >> 8)
	m.regs[addrAt(w6100RegVER, 1)] = byte(w6100Version & 0xFF)
}

// IntPin returns the interrupt line driven by the chip
func (m *MockChip) IntPin() *MockInterruptPin { return m.pin }

// Read implements Transport
func (m *MockChip) Read(addr uint32, dst []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrTransportClosed
	}
	if m.readErr != nil {
		return m.readErr
	}
	if err := m.regErrs[addr]; err != nil {
		return err
	}
	m.reads[addr]++

	switch frame.Block(addr) {
	case frame.SockTX(0):
		copyFromRing(dst, m.tx[:], frame.Offset(addr))
		return nil
	case frame.SockRX(0):
		copyFromRing(dst, m.rx[:], frame.Offset(addr))
		return nil
	}

	switch addr {
	case m.ops.SockTXFSR:
		putU16(dst, m.counter(m.txFree()))
		return nil
	case m.ops.SockRXRSR:
		putU16(dst, m.counter(m.rxWR-m.rxRD))
		return nil
	}
	for i := range dst {
		dst[i] = m.readByte(addrAt(addr, i))
	}
	return nil
}

// Write implements Transport
func (m *MockChip) Write(addr uint32, src []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrTransportClosed
	}
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes[addr]++

	switch frame.Block(addr) {
	case frame.SockTX(0):
		copyToRing(m.tx[:], frame.Offset(addr), src)
		return nil
	case frame.SockRX(0):
		copyToRing(m.rx[:], frame.Offset(addr), src)
		return nil
	}
	for i, v := range src {
		m.writeByte(addrAt(addr, i), v)
	}
	m.updateIRQ()
	return nil
}

// Close implements Transport
func (m *MockChip) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Type implements Transport
func (*MockChip) Type() TransportType { return TransportMock }

func (m *MockChip) readByte(key uint32) byte {
	switch key {
	case m.ops.SockCR:
		if m.cmdStuck && len(m.cmds) > 0 {
			return m.cmds[len(m.cmds)-1]
		}
		return 0
	case m.ops.SockIR:
		return m.ir
	case m.ops.PHYStatusReg:
		return m.phyStatus()
	}
	if m.isW5500() {
		if key == w5500RegVERSIONR {
			return byte(m.identity)
		}
	} else {
		switch key {
		case w6100RegCIDR:
			return byte(m.identity >> 8)
		case addrAt(w6100RegCIDR, 1):
			return byte(m.identity)
		}
	}
	return m.regs[key]
}

func (m *MockChip) writeByte(key uint32, v byte) {
	switch key {
	case m.ops.SockCR:
		m.command(v)
		return
	case m.ops.SockIRClr:
		m.ir &^= v
		return
	case m.ops.SockIR:
		return
	}
	if m.isW5500() {
		switch key {
		case w5500RegMR:
			if v&w5500MRRst != 0 {
				m.softReset()
				if m.resetStuck {
					m.regs[key] = w5500MRRst
				}
			}
			return
		case w5500RegPHYCFGR:
			m.regs[key] = v &^ (phyStatusLink | phyStatusSpeed | phyStatusDuplex)
			return
		}
	} else if key == w6100RegSYCR0 && v == 0 {
		m.softReset()
		return
	}
	m.regs[key] = v
}

// phyStatus builds the PHY status register from the modeled link
func (m *MockChip) phyStatus() byte {
	if m.isW5500() {
		v := m.regs[w5500RegPHYCFGR]
		if !m.link || v&w5500PHYCFGRRst == 0 {
			return v
		}
		v |= phyStatusLink
		if m.speed == Speed100M {
			v |= phyStatusSpeed
		}
		if m.duplex == DuplexFull {
			v |= phyStatusDuplex
		}
		return v
	}

	v := (m.regs[w6100RegPHYCR0] & w6100OpmodeMask) << w6100OpmodeShift
	if !m.link || m.regs[w6100RegPHYCR1]&w6100PHYCR1Pwdn != 0 {
		return v | 0x80
	}
	v |= phyStatusLink
	if m.speed == Speed10M {
		v |= phyStatusSpeed
	}
	if m.duplex == DuplexHalf {
		v |= phyStatusDuplex
	}
	return v
}

func (m *MockChip) command(cmd byte) {
	m.cmds = append(m.cmds, cmd)
	if m.cmdStuck {
		return
	}
	switch cmd {
	case m.ops.CmdOpen:
		m.open = true
		m.txRD, m.rxWR, m.rxRD = 0, 0, 0
		m.setU16(m.ops.SockTXWR, 0)
		m.setU16(m.ops.SockRXRD, 0)
		m.ir = 0
	case m.ops.CmdClose:
		m.open = false
		m.ir = 0
	case m.ops.CmdSend:
		if !m.open {
			return
		}
		wr := m.u16(m.ops.SockTXWR)
		buf := make([]byte, wr-m.txRD)
		copyFromRing(buf, m.tx[:], m.txRD)
		m.txRD = wr
		m.sent = append(m.sent, buf)
		if !m.sendStuck {
			m.ir |= m.ops.SIRSend
		}
		if m.loopback {
			m.inject(buf)
		}
	case m.ops.CmdRecv:
		m.rxRD = m.u16(m.ops.SockRXRD)
	}
}

func (m *MockChip) softReset() {
	for k := range m.regs {
		if m.isW5500() && k == w5500RegPHYCFGR {
			continue
		}
		if !m.isW5500() && (k == w6100RegPHYCR0 || k == w6100RegPHYCR1) {
			continue
		}
		delete(m.regs, k)
	}
	m.powerOn()
	m.txRD, m.rxWR, m.rxRD = 0, 0, 0
	m.ir = 0
	m.open = false
}

func (m *MockChip) txFree() uint16 {
	if m.txFreeOverride >= 0 {
		return uint16(m.txFreeOverride)
	}
	return frame.SocketBufferSize - (m.u16(m.ops.SockTXWR) - m.txRD)
}

// counter returns v, or a drifting value while reads are made unstable
func (m *MockChip) counter(v uint16) uint16 {
	if m.unstableReads > 0 {
		m.unstableReads--
		m.jitter++
		return v + m.jitter
	}
	return v
}

func (m *MockChip) u16(addr uint32) uint16 {
	return uint16(m.regs[addr])<<8 | uint16(m.regs[addrAt(addr, 1)])
}

func (m *MockChip) setU16(addr uint32, v uint16) {
	m.regs[addr] = byte(v >> 8)
	m.regs[addrAt(addr, 1)] = byte(v)
}

// inject stores a frame behind its inclusive length prefix
func (m *MockChip) inject(payload []byte) bool {
	size := len(payload) + frame.RxHeaderLength
	used := int(m.rxWR - m.rxRD)
	if used+size > frame.SocketBufferSize {
		return false
	}
	var hdr [frame.RxHeaderLength]byte
	putU16(hdr[:], uint16(size))
	m.injectRaw(hdr[:])
	m.injectRaw(payload)
	return true
}

func (m *MockChip) injectRaw(data []byte) {
	copyToRing(m.rx[:], m.rxWR, data)
	m.rxWR += uint16(len(data))
	m.ir |= m.ops.SIRRecv
	m.updateIRQ()
}

// updateIRQ drives INTn low while socket 0 has an unmasked event pending
func (m *MockChip) updateIRQ() {
	asserted := m.regs[m.ops.SIMR]&m.ops.SIMRSock0 != 0 &&
		m.ir&m.regs[m.ops.Reg(RegSockIMR)] != 0
	if asserted == m.irqAsserted {
		return
	}
	m.irqAsserted = asserted
	if asserted {
		m.pin.Assert()
	} else {
		m.pin.Release()
	}
}

// InjectFrame places an Ethernet frame in the RX ring as if it had been
// received. It returns false when the ring has no room for it.
func (m *MockChip) InjectFrame(payload []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ok := m.inject(payload)
	m.updateIRQ()
	return ok
}

// InjectBurst places several frames in the RX ring at once, so they raise
// a single interrupt edge. It returns false when the ring fills up; frames
// before that point stay queued.
func (m *MockChip) InjectBurst(payloads [][]byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range payloads {
		if !m.inject(p) {
			return false
		}
	}
	return true
}

// InjectRaw appends raw bytes to the RX ring, length prefix included
func (m *MockChip) InjectRaw(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.injectRaw(data)
}

// SetLink sets the modeled cable state and negotiated mode
func (m *MockChip) SetLink(up bool, speed Speed, duplex Duplex) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.link, m.speed, m.duplex = up, speed, duplex
}

// SetLoopback feeds every transmitted frame back into the RX ring
func (m *MockChip) SetLoopback(enable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loopback = enable
}

// SetIdentity overrides VERSIONR on a W5500 or CIDR on a W6100
func (m *MockChip) SetIdentity(id uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = id
}

// SetCommandStuck makes Sn_CR keep the last command instead of clearing
func (m *MockChip) SetCommandStuck(stuck bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cmdStuck = stuck
}

// SetSendStuck stops SEND from raising the send complete bit
func (m *MockChip) SetSendStuck(stuck bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendStuck = stuck
}

// SetResetStuck keeps MR.RST set after a W5500 software reset
func (m *MockChip) SetResetStuck(stuck bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetStuck = stuck
}

// SetTXFree pins the TX free size counter to n, negative to model it
func (m *MockChip) SetTXFree(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txFreeOverride = n
}

// SetUnstableReads makes the next n counter reads return drifting values
func (m *MockChip) SetUnstableReads(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unstableReads = n
}

// SetErrors makes every Read and Write fail with the given errors
func (m *MockChip) SetErrors(readErr, writeErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr, m.writeErr = readErr, writeErr
}

// SetRegisterError makes reads of the register at addr fail with err, nil
// to clear it
func (m *MockChip) SetRegisterError(addr uint32, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.regErrs == nil {
		m.regErrs = make(map[uint32]error)
	}
	m.regErrs[addr] = err
}

// Sent returns the frames transmitted so far
func (m *MockChip) Sent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.sent))
	copy(out, m.sent)
	return out
}

// Commands returns every value written to Sn_CR
func (m *MockChip) Commands() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.cmds...)
}

// Reg returns the stored value of a register
func (m *MockChip) Reg(addr uint32) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readByte(addr)
}

// Reads returns how many transfers started at addr
func (m *MockChip) Reads(addr uint32) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[addr]
}

// Writes returns how many writes started at addr
func (m *MockChip) Writes(addr uint32) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[addr]
}

// Pending returns the number of bytes waiting in the RX ring
func (m *MockChip) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int(m.rxWR - m.rxRD)
}

// IsOpen reports whether socket 0 is open
func (m *MockChip) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// MockInterruptPin models the INTn input. Assert drives it low and
// signals one edge.
type MockInterruptPin struct {
	edges chan struct{}
	halt  chan struct{}
	mu    sync.Mutex
	edge  gpio.Edge
	level gpio.Level
}

// NewMockInterruptPin creates a released (high) interrupt line
func NewMockInterruptPin() *MockInterruptPin {
	return &MockInterruptPin{
		edges: make(chan struct{}, 1),
		halt:  make(chan struct{}, 1),
		level: gpio.High,
	}
}

// In implements InterruptPin
func (p *MockInterruptPin) In(_ gpio.Pull, edge gpio.Edge) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.edge = edge
	return nil
}

// Read implements InterruptPin
func (p *MockInterruptPin) Read() gpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// WaitForEdge implements InterruptPin
func (p *MockInterruptPin) WaitForEdge(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-p.edges:
		return true
	case <-p.halt:
		return false
	case <-timer.C:
		return false
	}
}

// Halt implements InterruptPin and releases a pending WaitForEdge
func (p *MockInterruptPin) Halt() error {
	select {
	case p.halt <- struct{}{}:
	default:
	}
	return nil
}

func (*MockInterruptPin) String() string { return "mock-intn" }

// Edge returns the edge detection last configured with In
func (p *MockInterruptPin) Edge() gpio.Edge {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.edge
}

// Assert drives the line low and signals a falling edge
func (p *MockInterruptPin) Assert() {
	p.mu.Lock()
	p.level = gpio.Low
	edge := p.edge
	p.mu.Unlock()
	if edge == gpio.NoEdge {
		return
	}
	select {
	case p.edges <- struct{}{}:
	default:
	}
}

// Release drives the line high
func (p *MockInterruptPin) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = gpio.High
}

func addrAt(addr uint32, i int) uint32 {
	return frame.MakeMap(frame.Offset(addr)+uint16(i), frame.Block(addr))
}

func putU16(dst []byte, v uint16) {
	dst[0] = byte(v >> 8)
	dst[1] = byte(v)
}

func copyFromRing(dst, ring []byte, off uint16) {
	for i := range dst {
		dst[i] = ring[(int(off)+i)&ringMask]
	}
}

func copyToRing(ring []byte, off uint16, src []byte) {
	for i, v := range src {
		ring[(int(off)+i)&ringMask] = v
	}
}
