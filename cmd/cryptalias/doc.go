/*
Command cryptalias resolves wallet aliases and runs a reference resolver.

Usage:

	cryptalias resolve [--json] [--timeout 10s] [--dns-pin] [--dns-server host:port] <alias> <ticker>
	cryptalias serve --config config.yml --listen-addr 127.0.0.1:8080 [--dns-server host:port] --master-key <hex>
	cryptalias keys [--master-key <hex> | --master-key-share <hex>...] <domain>
	cryptalias split-key --master-key <hex> [--shares 5] [--threshold 3]

serve accepts --master-key-share (repeated) instead of --master-key so the
master key itself never has to be stored on the serving host. At startup it
logs the TXT record each domain must publish; --dns-server is the resolver
queried by /.well-known/cryptalias/status to check that record.

Quote aliases in the shell: 'alice$example.com'.
*/
package main
