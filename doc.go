// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

// Nxospoap provisions Cisco Nexus 9000 switches during power-on auto
// provisioning (POAP). The switch downloads the poap binary, runs it once per
// boot, and reboots into whatever it leaves behind.
//
// One run does the following:
//
//    - works out which configuration belongs to this switch (by serial
//      number, MAC, hostname, CDP neighbor, personality tarball, or a fixed
//      name) and fetches it with an md5 check
//    - steps the switch one image along the configured upgrade path. Only
//      the final step applies configuration; intermediate steps reboot into
//      the next image and POAP runs again.
//    - splits configuration for older images that only honor TCAM carving
//      and similar settings after a reload
//    - optionally applies a per-switch recipe of licenses, RPMs,
//      certificates and trustpoints, rolling the RPMs back if the run fails
//    - installs the image with install all (ISSU) or the classic boot
//      variable flow, upgrading the BIOS first where needed
//
// On any failure, files fetched by the run are removed so the next POAP
// attempt starts clean. The run log lives on bootflash and can also be
// uploaded to S3.
//
// See cmd/poap for the command line, and pkg/poap for the run itself.
package nxospoap
