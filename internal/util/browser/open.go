package browser

import (
	"fmt"
	"log"
	"os/exec"
	"runtime"
)

// OpenBrowser launches the user's default browser at url. This is used to
// hand off the PKCE authorization request, so url is printed verbatim on
// failure: the redirect_uri embedded in it is bound to the loopback address
// the callback server is actually listening on, and substituting in an
// outbound-facing IP here would send the browser to an address nothing is
// serving.
func OpenBrowser(url string) {
	var err error

	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform")
	}
	if err != nil {
		log.Println("Could not open browser. Please visit:", url)
	}
}
