// Package config loads the devel79 configuration file.
//
// # File Format
//
// The file holds one name=value assignment per line:
//
//	# comment
//	name = Devel79 Server
//	machine = devel79
//	ip = 192.168.56.1
//	checktime = 15
//
// Blank lines and lines starting with '#' are ignored. The first '=' splits
// the key from the value and whitespace around both is trimmed. Keys are
// matched case-insensitively; unknown keys and lines without '=' are
// skipped. UTF-8 and UTF-16 (with a byte order mark) are accepted.
//
// Two optional keys tune the VirtualBox front end: vboxmanage (path of the
// VBoxManage binary) and sessiontype (gui, headless or separate).
//
// ssh holds the SSH client command line. command may repeat and names a
// host command as "name | command line":
//
//	ssh = ssh -t dev@192.168.56.1
//	command = Restart nginx | ssh dev@192.168.56.1 sudo systemctl restart nginx
//
// # Location
//
// A relative path, including the default devel79.conf, is resolved against
// the directory of the running executable, never the working directory.
package config
