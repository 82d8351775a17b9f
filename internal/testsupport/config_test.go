package testsupport_test

import (
	"os"
	"testing"

	"dripl/internal/config"
	"dripl/internal/testsupport"
)

func TestWriteConfigFileLoads(t *testing.T) {
	testsupport.ClearEnv(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithDownloaderScript(testsupport.SuccessScript),
		testsupport.WithCookieFile("a.txt"),
		testsupport.WithProxies("socks5://proxy.example:1080"),
	)

	loaded, _, exists, err := config.Load(testsupport.WriteConfigFile(t, cfg))
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if !exists {
		t.Fatal("expected written config to exist")
	}
	if loaded.Downloader.Binary != cfg.Downloader.Binary {
		t.Fatalf("binary mismatch: %q vs %q", loaded.Downloader.Binary, cfg.Downloader.Binary)
	}
	if len(loaded.Credentials.CookiePaths) != 1 || len(loaded.Routes.Proxies) != 1 {
		t.Fatalf("unexpected credentials/routes: %+v %+v", loaded.Credentials, loaded.Routes)
	}
	info, err := os.Stat(loaded.Downloader.Binary)
	if err != nil || info.Mode().Perm()&0o111 == 0 {
		t.Fatalf("expected executable stub downloader, err=%v", err)
	}
}
