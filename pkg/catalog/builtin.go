package catalog

var executeTools = []string{"execute_tools"}

func sim(id string, cat Category, summary string, seconds int, input map[string]string) Tool {
	if input == nil {
		input = map[string]string{}
	}
	return Tool{
		ID:                  id,
		Category:            cat,
		Summary:             summary,
		InputSchema:         input,
		RequiredPermissions: append([]string(nil), executeTools...),
		EstimatedDuration:   seconds,
	}
}

func builtin() []Tool {
	return []Tool{
		// Network
		sim("nmap_scan.sim", Network, "Simulated Nmap scan that enumerates open ports on targets.", 120, map[string]string{
			"targets": "string[]", "intensity": "low|med|high", "ports": "string?", "scripts": "string[]?",
		}),
		sim("masscan_scan.sim", Network, "High-speed TCP port scanner.", 90, map[string]string{
			"targets": "string[]", "ports": "string", "rate": "number",
		}),
		sim("rustscan_scan.sim", Network, "Hybrid port scanner combining Nmap and RustScan.", 75, nil),
		sim("amass_enum.sim", Network, "Enumerate subdomains using OWASP Amass.", 180, nil),
		sim("autorecon_scan.sim", Network, "Automated network reconnaissance workflow.", 240, nil),

		// Web applications
		sim("gobuster_scan.sim", WebApp, "Directory brute-forcing for web applications.", 60, map[string]string{
			"url": "string", "wordlist": "string", "extensions": "string[]?", "threads": "number?",
		}),
		sim("ffuf_scan.sim", WebApp, "Content discovery using FFUF.", 50, nil),
		sim("nuclei_scan.sim", WebApp, "Template-based vulnerability scanning.", 180, map[string]string{
			"targets": "string[]", "templates": "string[]?", "severity": "string[]?",
		}),
		sim("sqlmap_scan.sim", WebApp, "SQL injection testing workflow.", 200, nil),
		sim("wpscan_scan.sim", WebApp, "WordPress security assessment.", 120, nil),

		// Cloud
		sim("prowler_assess.sim", Cloud, "AWS security best-practice assessment.", 300, nil),
		sim("scout_suite_audit.sim", Cloud, "Multi-cloud security auditing.", 320, nil),
		sim("trivy_scan.sim", Cloud, "Container and artifact vulnerability scanning.", 110, nil),
		sim("kube_hunter_scan.sim", Cloud, "Kubernetes cluster penetration testing.", 260, nil),
		sim("kube_bench_check.sim", Cloud, "Kubernetes CIS benchmark checks.", 220, nil),

		// Binary
		sim("ghidra_analyze.sim", Binary, "Reverse engineering workflow using Ghidra.", 600, nil),
		sim("radare2_analyze.sim", Binary, "Binary analysis using radare2.", 480, nil),
		sim("angr_analyze.sim", Binary, "Symbolic execution with angr.", 540, nil),

		// CTF / forensics
		sim("volatility_analyze.sim", CTF, "Memory forensics with Volatility.", 360, nil),
		sim("binwalk_analyze.sim", CTF, "Firmware analysis using Binwalk.", 240, nil),

		// OSINT
		sim("recon_ng.sim", OSINT, "Modular OSINT automation.", 200, nil),
		sim("spiderfoot.sim", OSINT, "Automated OSINT data collection.", 220, nil),
		sim("theharvester.sim", OSINT, "Harvest emails, hosts, and domains.", 160, nil),
	}
}
