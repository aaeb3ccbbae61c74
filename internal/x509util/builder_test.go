package x509util

import (
	"crypto/x509"
	"net"
	"testing"
	"time"
)

func TestU_Builder_CA(t *testing.T) {
	cert, err := NewCertificateBuilder().
		CommonName("Test Root").
		CA(1).
		ValidForDays(3650).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if !cert.IsCA {
		t.Error("IsCA = false, want true")
	}
	if cert.MaxPathLen != 1 {
		t.Errorf("MaxPathLen = %d, want 1", cert.MaxPathLen)
	}
	if cert.KeyUsage != x509.KeyUsageCertSign|x509.KeyUsageCRLSign {
		t.Errorf("KeyUsage = %v, want certSign|cRLSign", cert.KeyUsage)
	}
	if !cert.BasicConstraintsValid {
		t.Error("BasicConstraintsValid = false, want true")
	}

	wantAfter := time.Now().UTC().AddDate(0, 0, 3650)
	if d := cert.NotAfter.Sub(wantAfter); d > time.Minute || d < -time.Minute {
		t.Errorf("NotAfter = %v, want ~%v", cert.NotAfter, wantAfter)
	}
}

func TestU_Builder_TLSEndEntity(t *testing.T) {
	cert, err := NewCertificateBuilder().
		CommonName("svc.internal").
		DNSNames("svc.internal").
		IPAddresses(net.ParseIP("10.0.0.1")).
		TLSEndEntity().
		ValidForDays(200).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if cert.IsCA {
		t.Error("IsCA = true, want false")
	}
	if cert.KeyUsage != x509.KeyUsageDigitalSignature|x509.KeyUsageKeyEncipherment {
		t.Errorf("KeyUsage = %v, want digitalSignature|keyEncipherment", cert.KeyUsage)
	}
	if len(cert.ExtKeyUsage) != 2 {
		t.Fatalf("ExtKeyUsage length = %d, want 2", len(cert.ExtKeyUsage))
	}
	if cert.ExtKeyUsage[0] != x509.ExtKeyUsageServerAuth || cert.ExtKeyUsage[1] != x509.ExtKeyUsageClientAuth {
		t.Error("ExtKeyUsage should be serverAuth, clientAuth")
	}
	if len(cert.DNSNames) != 1 || cert.DNSNames[0] != "svc.internal" {
		t.Errorf("DNSNames = %v, want [svc.internal]", cert.DNSNames)
	}
	if len(cert.IPAddresses) != 1 {
		t.Errorf("IPAddresses = %v, want one entry", cert.IPAddresses)
	}
}

func TestU_GenerateSerialNumber(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		sn, err := GenerateSerialNumber()
		if err != nil {
			t.Fatalf("GenerateSerialNumber() error = %v", err)
		}
		if sn.Sign() < 0 {
			t.Error("serial number should be non-negative")
		}
		if sn.BitLen() > 128 {
			t.Errorf("serial number bit length = %d, want <= 128", sn.BitLen())
		}
		key := sn.String()
		if seen[key] {
			t.Errorf("duplicate serial number %s", key)
		}
		seen[key] = true
	}
}
