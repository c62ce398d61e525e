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

package versions

// ProgressSink receives download progress while the external tool
// runs. Methods are called from the download's worker goroutine;
// implementations that touch UI state must marshal onto their UI
// thread themselves.
type ProgressSink interface {
	// Status reports a free-text phase description.
	Status(message string)
	// Progress reports a 0-100 percentage when one could be extracted
	// from the tool's output.
	Progress(percent float64)
	// Log echoes a raw tool output line.
	Log(line string)
}

// NopSink discards all progress events.
type NopSink struct{}

func (NopSink) Status(string)    {}
func (NopSink) Progress(float64) {}
func (NopSink) Log(string)       {}
