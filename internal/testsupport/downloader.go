package testsupport

// SuccessScript mimics a downloader that writes clip.mp4 into the directory of
// its -o template and prints the final path, as --print after_move:filepath does.
const SuccessScript = `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift 2 ;;
    --) shift; break ;;
    *) shift ;;
  esac
done
dir=$(dirname "$out")
mkdir -p "$dir"
file="$dir/clip.mp4"
printf 'media' > "$file"
echo "$file"
`

// ForbiddenScript fails the way the downloader does on an HTTP 403.
const ForbiddenScript = `#!/bin/sh
echo "ERROR: [youtube] abc: HTTP Error 403: Forbidden" >&2
exit 1
`

const netscapeCookies = "# Netscape HTTP Cookie File\n.youtube.com\tTRUE\t/\tTRUE\t0\tSID\tabc\n"
