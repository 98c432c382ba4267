// Copyright (C) 2015-2020 the Gprovision Authors. All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// SPDX-License-Identifier: BSD-3-Clause
//

package splitter

// Lines starting with one of these only take effect after a reload.
var reloadPrefixes = []string{
	"system vlan",
	"hardware profile portmode",
	"hardware profile forwarding-mode warp",
	"hardware profile forwarding-mode openflow-hybrid",
	"hardware profile forwarding-mode openflow-only",
	"hardware profile tcam",
	"type fc",
	"fabric-mode 40G",
	"system urpf",
	"no system urpf",
	"hardware profile ipv6",
	"system routing",
	"hardware profile multicast service-reflect",
	"ip service-reflect mode",
	"udf",
	"hardware profile unicast enable-host-ecmp",
}

const resourceTemplateOpener = "hardware profile tcam resource template"

// Regions that may be carved inside a resource template. Matched as
// substrings, so several entries are redundant; the list is kept as NX-OS
// documents it.
var resourceTemplateKeywords = []string{
	"arp-ether",
	"copp",
	"e-ipv6-qos",
	"e-ipv6-racl",
	"e-mac-qos",
	"e-qos",
	"e-qos-lite",
	"e-racl",
	"fcoe-egress",
	"fcoe-ingress",
	"fex-ifacl",
	"fex-ipv6-ifacl",
	"fex-ipv6-qos",
	"fex-mac-ifacl",
	"fex-mac-qos",
	"fex-qos",
	"fex-qos-lite",
	"ifacl",
	"ipsg",
	"ipv6-ifacl",
	"ipv6-l3qos",
	"ipv6-qos",
	"ipv6-racl",
	"ipv6-vacl",
	"ipv6-vqos",
	"l3qos",
	"l3qos-lite",
	"mac-ifacl",
	"mac-l3qos",
	"mac-qos",
	"mac-vacl",
	"mac-vqos",
	"mcast-performance",
	"mcast_bidir",
	"mpls",
	"n9k-arp-acl",
	"nat",
	"ns-ipv6-l3qos",
	"ns-ipv6-qos",
	"ns-ipv6-vqos",
	"ns-l3qos",
	"ns-mac-l3qos",
	"ns-mac-qos",
	"ns-mac-vqos",
	"ns-qos",
	"ns-vqos",
	"openflow",
	"openflow-ipv6",
	"qos",
	"qos-lite",
	"racl",
	"redirect",
	"redirect-tunnel",
	"rp-ipv6-qos",
	"rp-mac-qos",
	"rp-qos",
	"rp-qos-lite",
	"sflow",
	"span",
	"span-sflow",
	"vacl",
	"vpc-convergence",
	"vqos",
	"vqos-lite",
}
