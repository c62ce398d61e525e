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

package config

// AppVersion is the launcher version, set at build time.
var AppVersion = "DEVELOPMENT"

const (
	AppName = "cmlauncher"
	// RootFolderName is the launcher's data directory under the user's
	// home, shared by settings, logs, installations and version caches.
	RootFolderName = ".castleminer"
	CfgFile        = "launcher.toml"
	LogFile        = "launcher.log"
	// RootEnv overrides the launcher root directory when set.
	RootEnv = "CMLAUNCHER_ROOT"
	// CfgEnv overrides the settings file path when set.
	CfgEnv = "CMLAUNCHER_CFG"
)
