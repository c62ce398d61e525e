// CM Launcher Core
// Copyright (c) 2026 The CM Launcher Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of CM Launcher Core.
//
// CM Launcher Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// CM Launcher Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with CM Launcher Core.  If not, see <http://www.gnu.org/licenses/>.

package steam

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/spf13/afero"
)

// vsVersionInfoKey is "VS_VERSION_INFO" in UTF-16LE, the key that
// precedes the fixed file info block in a PE version resource.
var vsVersionInfoKey = []byte{
	'V', 0, 'S', 0, '_', 0, 'V', 0, 'E', 0, 'R', 0, 'S', 0, 'I', 0,
	'O', 0, 'N', 0, '_', 0, 'I', 0, 'N', 0, 'F', 0, 'O', 0,
}

// fixedFileInfoSignature marks the VS_FIXEDFILEINFO struct
// (0xFEEF04BD, little-endian on disk).
var fixedFileInfoSignature = []byte{0xBD, 0x04, 0xEF, 0xFE}

// ExeVersion extracts the file version ("a.b.c.d") embedded in a
// Windows executable's version resource. Returns empty if the file has
// none or cannot be read. Used as a friendly-version fallback for
// Steam copies that were never downloaded through the launcher.
func ExeVersion(fsys afero.Fs, path string) string {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return ""
	}

	keyIdx := bytes.Index(data, vsVersionInfoKey)
	if keyIdx < 0 {
		return ""
	}

	// The fixed info struct follows the key after padding.
	window := data[keyIdx:]
	if len(window) > 128 {
		window = window[:128]
	}
	sigIdx := bytes.Index(window, fixedFileInfoSignature)
	if sigIdx < 0 || keyIdx+sigIdx+16 > len(data) {
		return ""
	}

	// VS_FIXEDFILEINFO: dwSignature, dwStrucVersion, dwFileVersionMS,
	// dwFileVersionLS, ...
	base := keyIdx + sigIdx
	ms := binary.LittleEndian.Uint32(data[base+8 : base+12])
	ls := binary.LittleEndian.Uint32(data[base+12 : base+16])

	return fmt.Sprintf("%d.%d.%d.%d", ms>>16, ms&0xffff, ls>>16, ls&0xffff)
}
