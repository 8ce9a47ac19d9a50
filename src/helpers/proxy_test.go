package helpers_test

import (
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"market-pulse/src/helpers"
)

type proxySuite struct{}

var _ = gc.Suite(&proxySuite{})

func (s *proxySuite) TestValidateAndFormat(c *gc.C) {
	c.Check(helpers.FormatProxy("10.0.0.1:8080"), gc.Equals, "http://10.0.0.1:8080")
	c.Check(helpers.FormatProxy("socks5://10.0.0.1:1080"), gc.Equals, "socks5://10.0.0.1:1080")
	c.Check(helpers.ValidateProxy("10.0.0.1:8080"), jc.IsTrue)
	c.Check(helpers.ValidateProxy("  "), jc.IsFalse)
	c.Check(helpers.ValidateProxy("ftp://10.0.0.1:21"), jc.IsFalse)
}

func (s *proxySuite) TestRotation(c *gc.C) {
	pm := helpers.NewProxyManager([]string{"10.0.0.1:8080", "", "ftp://bad:21", "https://10.0.0.2:8443"}, "")
	c.Assert(pm.HasProxies(), jc.IsTrue)

	p, err := pm.GetCurrentProxy()
	c.Assert(err, jc.ErrorIsNil)
	c.Check(p, gc.Equals, "http://10.0.0.1:8080")

	pm.RotateProxy()
	p, _ = pm.GetCurrentProxy()
	c.Check(p, gc.Equals, "https://10.0.0.2:8443")

	pm.RotateProxy()
	p, _ = pm.GetCurrentProxy()
	c.Check(p, gc.Equals, "http://10.0.0.1:8080")
}

func (s *proxySuite) TestNoProxies(c *gc.C) {
	pm := helpers.NewProxyManager(nil, "")
	c.Check(pm.HasProxies(), jc.IsFalse)
	p, err := pm.GetCurrentProxy()
	c.Check(err, jc.ErrorIsNil)
	c.Check(p, gc.Equals, "")
	pm.RotateProxy()
}

func (s *proxySuite) TestPinnedUserAgent(c *gc.C) {
	pm := helpers.NewProxyManager(nil, "pulse-test/1.0")
	c.Check(pm.GetUserAgent(), gc.Equals, "pulse-test/1.0")
	c.Check(pm.GetUserAgent(), gc.Equals, "pulse-test/1.0")
}
