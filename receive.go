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
	"fmt"
	"log/slog"

	"github.com/ZaparooProject/go-wiznet/internal/frame"
)

// rxFrame describes the frame at the head of the RX ring
type rxFrame struct {
	remain uint16 // bytes waiting in the ring, this frame included
	offset uint16 // ring read pointer at the length prefix
	size   uint16 // length prefix, which counts itself
}

// payload is the frame length without the prefix
func (f rxFrame) payload() int { return int(f.size) - frame.RxHeaderLength }

// Receive copies the next frame into dst and returns its length. It returns
// 0 and no error when the ring is empty. A frame longer than dst is cut to
// len(dst) and reported with ErrFrameTruncated; the ring moves past it either way.
func (m *MAC) Receive(dst []byte) (int, error) {
	m.rxMu.Lock()
	defer m.rxMu.Unlock()

	f, ok, err := m.headFrame()
	if err != nil || !ok {
		return 0, err
	}
	if f.payload() < frame.MinRxPayload {
		return 0, m.dropRunt(f)
	}

	n := min(f.payload(), len(dst))
	if err := m.readFrame(f, dst[:n]); err != nil {
		return 0, err
	}
	if f.payload() > n {
		m.warn("received frame was truncated",
			slog.Int("length", f.payload()), slog.Int("buffer", len(dst)))
		return n, fmt.Errorf("%w: %d of %d bytes", ErrFrameTruncated, n, f.payload())
	}
	return n, nil
}

// ReceiveFrame returns the next frame in a buffer obtained from the
// configured allocator, or nil when the ring is empty. When the allocator
// fails the frame is dropped and ErrNoMem returned.
func (m *MAC) ReceiveFrame() ([]byte, error) {
	m.rxMu.Lock()
	defer m.rxMu.Unlock()

	f, ok, err := m.headFrame()
	if err != nil || !ok {
		return nil, err
	}
	if f.payload() < frame.MinRxPayload {
		return nil, m.dropRunt(f)
	}

	n := min(f.payload(), frame.MaxPacketSize)
	buf := m.config.Allocator(n)
	if len(buf) < n {
		m.logerr("no mem for receive buffer", slog.Int("length", n))
		if err := m.skipFrame(f); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %d bytes", ErrNoMem, n)
	}
	buf = buf[:n]
	if err := m.readFrame(f, buf); err != nil {
		return nil, err
	}
	if f.payload() > n {
		m.warn("received frame was truncated", slog.Int("length", f.payload()))
		return nil, fmt.Errorf("%w: %d of %d bytes", ErrFrameTruncated, n, f.payload())
	}
	return buf, nil
}

// Flush discards every frame waiting in the RX ring
func (m *MAC) Flush() error {
	m.rxMu.Lock()
	defer m.rxMu.Unlock()
	for {
		f, ok, err := m.headFrame()
		if err != nil || !ok {
			return err
		}
		if err := m.skipFrame(f); err != nil {
			return err
		}
		if !m.packetsRemain.Load() {
			return nil
		}
	}
}

// headFrame reads the ring state and the length prefix of the first frame.
// A prefix that cannot describe a frame inside the ring means the pointers
// are out of step with the chip; the socket is reopened to drop the ring.
func (m *MAC) headFrame() (rxFrame, bool, error) {
	m.packetsRemain.Store(false)

	remain, err := m.stableU16(m.ops.SockRXRSR, "RX received size")
	if err != nil {
		return rxFrame{}, false, err
	}
	if remain == 0 {
		return rxFrame{}, false, nil
	}

	offset, err := readU16(m.tr, m.ops.SockRXRD)
	if err != nil {
		return rxFrame{}, false, fmt.Errorf("read RX read pointer: %w", err)
	}
	size, err := readU16(m.tr, frame.WithOffset(m.ops.MemRXBase, offset))
	if err != nil {
		return rxFrame{}, false, fmt.Errorf("read frame length: %w", err)
	}

	f := rxFrame{remain: remain, offset: offset, size: size}
	if size <= frame.RxHeaderLength || size > remain || size > frame.MaxPacketSize+frame.RxHeaderLength {
		m.logerr("corrupted frame length",
			slog.Int("length", int(size)), slog.Int("remain", int(remain)))
		if err := m.resync(); err != nil {
			return rxFrame{}, false, err
		}
		return rxFrame{}, false, fmt.Errorf("%w: length prefix %d with %d bytes pending",
			ErrInvalidFrameSize, size, remain)
	}
	return f, true, nil
}

// readFrame copies the first len(dst) payload bytes of f through the
// scratch buffer and releases the whole frame.
func (m *MAC) readFrame(f rxFrame, dst []byte) error {
	scratch := m.rxBuf[:len(dst)]
	addr := frame.WithOffset(m.ops.MemRXBase, f.offset+frame.RxHeaderLength)
	if err := m.tr.Read(addr, scratch); err != nil {
		return fmt.Errorf("read RX buffer: %w", err)
	}
	copy(dst, scratch)
	if m.tracing() {
		m.traceFrame("rx", dst)
	}
	return m.skipFrame(f)
}

// skipFrame advances RX_RD past f, including its length prefix, and
// issues RECV so the chip reclaims the space.
func (m *MAC) skipFrame(f rxFrame) error {
	if err := writeU16(m.tr, m.ops.SockRXRD, f.offset+f.size); err != nil {
		return fmt.Errorf("write RX read pointer: %w", err)
	}
	if err := m.sendCommand(m.ops.CmdRecv, commandTimeout); err != nil {
		return fmt.Errorf("issue RECV: %w", err)
	}
	m.packetsRemain.Store(int(f.remain)-int(f.size) > 0)
	return nil
}

func (m *MAC) dropRunt(f rxFrame) error {
	m.warn("dropping undersized frame", slog.Int("length", f.payload()))
	if err := m.skipFrame(f); err != nil {
		return err
	}
	return fmt.Errorf("%w: %d bytes", ErrInvalidFrameSize, f.payload())
}

// resync reopens socket 0, which resets both ring pointers
func (m *MAC) resync() error {
	if err := m.sendCommand(m.ops.CmdClose, commandTimeout); err != nil {
		return fmt.Errorf("close socket: %w", err)
	}
	if err := m.sendCommand(m.ops.CmdOpen, commandTimeout); err != nil {
		return fmt.Errorf("reopen socket: %w", err)
	}
	return nil
}
