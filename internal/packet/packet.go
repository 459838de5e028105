// SPDX-FileCopyrightText:  © 2025 Siemens Healthineers AG
// SPDX-License-Identifier:   MIT

// Package packet provides the game packet codec and a packet interceptor for the embedded projector.
// Traffic is captured through a divert handle; the bundled handle is a mock that never yields packets
// unless fed.
package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

type Kind int

const (
	KindBinary Kind = iota
	KindText
)

const (
	Magic      uint16 = 0x9527
	HeaderSize        = 16

	CommandMapJump      uint16 = 0x0003
	CommandPetStorage   uint16 = 0x0014
	CommandHomeTraining uint16 = 0x0052

	PetEscapeText = "System_宠物逃跑"

	builderLength uint32 = 0x0B
)

var (
	ErrTooShort       = errors.New("packet too short")
	ErrBinaryTooShort = errors.New("binary packet too short")
)

// Packet is either a binary game packet with a 16 byte header or a plain text packet
type Packet struct {
	Kind     Kind
	Magic    uint16
	Length   uint32
	Command  uint16
	QQNumber uint64
	Data     []byte
	Text     string
}

// Parse decodes raw packet bytes. Anything not starting with the magic number is text.
func Parse(raw []byte) (Packet, error) {
	if len(raw) < 2 {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrTooShort, len(raw))
	}

	magic := binary.LittleEndian.Uint16(raw[0:2])
	if magic != Magic {
		return Packet{Kind: KindText, Text: strings.ToValidUTF8(string(raw), "�")}, nil
	}

	if len(raw) < HeaderSize {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrBinaryTooShort, len(raw))
	}

	return Packet{
		Kind:     KindBinary,
		Magic:    magic,
		Length:   binary.LittleEndian.Uint32(raw[2:6]),
		Command:  binary.LittleEndian.Uint16(raw[6:8]),
		QQNumber: binary.LittleEndian.Uint64(raw[8:16]),
		Data:     append([]byte(nil), raw[HeaderSize:]...),
	}, nil
}

// Bytes encodes the packet. The header is written as is, Length is not recomputed.
func (p Packet) Bytes() []byte {
	if p.Kind == KindText {
		return []byte(p.Text)
	}

	buffer := make([]byte, 0, HeaderSize+len(p.Data))
	buffer = binary.LittleEndian.AppendUint16(buffer, p.Magic)
	buffer = binary.LittleEndian.AppendUint32(buffer, p.Length)
	buffer = binary.LittleEndian.AppendUint16(buffer, p.Command)
	buffer = binary.LittleEndian.AppendUint64(buffer, p.QQNumber)
	return append(buffer, p.Data...)
}

func (p Packet) LogValue() slog.Value {
	if p.Kind == KindText {
		return slog.GroupValue(slog.String("kind", "text"), slog.Int("size", len(p.Text)))
	}
	return slog.GroupValue(
		slog.String("kind", "binary"),
		slog.String("command", fmt.Sprintf("0x%04X", p.Command)),
		slog.Int("size", HeaderSize+len(p.Data)),
	)
}

// MapJump moves the player to the given map
func MapJump(qqNumber uint64, mapNumber uint16) Packet {
	data := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x02, 0x00}
	data = binary.LittleEndian.AppendUint16(data, mapNumber)

	return binaryPacket(CommandMapJump, qqNumber, data)
}

func PetStorage(qqNumber uint64, spiritPosition uint8) Packet {
	return binaryPacket(CommandPetStorage, qqNumber, spiritPayload(spiritPosition))
}

func HomeTraining(qqNumber uint64, spiritPosition uint8) Packet {
	return binaryPacket(CommandHomeTraining, qqNumber, spiritPayload(spiritPosition))
}

func PetEscape() Packet {
	return Packet{Kind: KindText, Text: PetEscapeText}
}

func spiritPayload(spiritPosition uint8) []byte {
	return []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, spiritPosition}
}

func binaryPacket(command uint16, qqNumber uint64, data []byte) Packet {
	return Packet{
		Kind:     KindBinary,
		Magic:    Magic,
		Length:   builderLength,
		Command:  command,
		QQNumber: qqNumber,
		Data:     data,
	}
}
