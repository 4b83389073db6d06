package app

import "aixbot/internal/browser"

// Ordered locator lists for every element the automation touches. Site and
// extension UIs change class names between releases, so each element gets a
// fallback chain tried in order; adding a strategy is a data edit, not a
// control-flow change.

// Wallet extension unlock screen.
var (
	walletPasswordInputs = []browser.Locator{
		{Name: "okd password input", Kind: browser.KindCSS, Value: `input[data-testid="okd-input"][type="password"]`},
		{Name: "generic password input", Kind: browser.KindCSS, Value: `input[type="password"]`},
	}

	walletUnlockButtons = []browser.Locator{
		{Name: "okd submit button", Kind: browser.KindCSS, Value: `button[data-testid="okd-button"][type="submit"]`},
		{Name: "generic submit button", Kind: browser.KindCSS, Value: `button[type="submit"]`},
	}
)

// Site login flow.
var (
	connectWalletButtons = []browser.Locator{
		{Name: "connect wallet button", Kind: browser.KindXPath, Value: `//button[normalize-space()='Connect Wallet']`},
		{Name: "legacy login button", Kind: browser.KindXPath, Value: `//button[normalize-space()='Login']`},
	}

	continueWithWallet = []browser.Locator{
		{Name: "continue with a wallet", Kind: browser.KindXPath, Value: `//div[contains(@class,'Grow-sc') and normalize-space()='Continue with a wallet']`},
		{Name: "continue with a wallet text", Kind: browser.KindText, Value: "Continue with a wallet"},
	}

	okxWalletOptions = []browser.Locator{
		{Name: "okx wallet entry", Kind: browser.KindXPath, Value: `//span[contains(@class,'WalletName-sc') and normalize-space()='OKX Wallet']`},
		{Name: "okx wallet text", Kind: browser.KindText, Value: "OKX Wallet"},
	}

	notConnectedMarkers = []browser.Locator{
		{Name: "not connected marker", Kind: browser.KindXPath, Value: `//div[contains(@class,'text-neutral-500') and normalize-space()='Not Connected']`},
	}

	walletAddressMarkers = []browser.Locator{
		{Name: "wallet address", Kind: browser.KindCSS, Value: `span.text-xs.font-medium.leading-tight.cursor-pointer`},
		{Name: "wallet address xpath", Kind: browser.KindXPath, Value: `//span[contains(@class,'text-[#C6AA84]') and contains(@class,'cursor-pointer')]`},
	}
)

// Wallet popup confirm / connect buttons.
var (
	popupConnectButtons = []browser.Locator{
		{Name: "connect button cn", Kind: browser.KindXPath, Value: `//button[.//div[normalize-space()='连接']]`},
		{Name: "connect ancestor cn", Kind: browser.KindXPath, Value: `//div[normalize-space()='连接']/ancestor::button`},
		{Name: "connect any cn", Kind: browser.KindXPath, Value: `//button[.//*[normalize-space()='连接']]`},
		{Name: "connect button en", Kind: browser.KindXPath, Value: `//button[.//div[normalize-space()='Connect']]`},
		{Name: "connect ancestor en", Kind: browser.KindXPath, Value: `//div[normalize-space()='Connect']/ancestor::button`},
		{Name: "connect contains en", Kind: browser.KindXPath, Value: `//button[contains(normalize-space(),'Connect')]`},
	}

	popupConfirmButtons = []browser.Locator{
		{Name: "confirm btn content", Kind: browser.KindXPath, Value: `//span[contains(@class,'_action-button__content') and normalize-space()='确认']`},
		{Name: "confirm typography", Kind: browser.KindXPath, Value: `//div[contains(@class,'_typography-text') and normalize-space()='确认']`},
		{Name: "confirm button div", Kind: browser.KindXPath, Value: `//button[.//div[normalize-space()='确认']]`},
		{Name: "confirm ancestor", Kind: browser.KindXPath, Value: `//div[normalize-space()='确认']/ancestor::button`},
		{Name: "confirm button any", Kind: browser.KindXPath, Value: `//button[.//*[normalize-space()='确认']]`},
		{Name: "confirm contains cn", Kind: browser.KindXPath, Value: `//button[contains(., '确认')]`},
		{Name: "confirm contains en", Kind: browser.KindXPath, Value: `//button[contains(., 'Confirm')]`},
		{Name: "sign contains en", Kind: browser.KindXPath, Value: `//button[contains(., 'Sign')]`},
		{Name: "sign contains cn", Kind: browser.KindXPath, Value: `//button[contains(., '签名')]`},
	}
)

// Market page state machine.
var (
	marketLiveMarkers = []browser.Locator{
		{Name: "live badge", Kind: browser.KindXPath, Value: `//span[contains(@class,'text-emerald-400') and normalize-space()='Live']`},
	}

	marketOfflineMarkers = []browser.Locator{
		{Name: "offline badge", Kind: browser.KindXPath, Value: `//span[contains(@class,'text-red-400') and normalize-space()='Offline']`},
	}

	marketCountdownMarkers = []browser.Locator{
		{Name: "countdown text", Kind: browser.KindXPath, Value: `//div[contains(normalize-space(),'chances in')]`},
	}

	placingOpenMarkers = []browser.Locator{
		{Name: "placing open badge", Kind: browser.KindXPath, Value: `//div[contains(@class,'text-emerald-400') and contains(@class,'capitalize') and normalize-space()='Placing Open']`},
	}

	placeSuccessMarkers = []browser.Locator{
		{Name: "place success toast", Kind: browser.KindXPath, Value: `//div[contains(@class,'font-semibold') and normalize-space()='Place Success!']`},
	}

	resultWonMarkers = []browser.Locator{
		{Name: "you won", Kind: browser.KindXPath, Value: `//*[contains(normalize-space(),'You Won')]`},
	}

	resultLostMarkers = []browser.Locator{
		{Name: "you lost", Kind: browser.KindXPath, Value: `//*[contains(normalize-space(),'You Lost')]`},
	}

	placeLongButtons = []browser.Locator{
		{Name: "place long styled", Kind: browser.KindXPath, Value: `//div[contains(@class,'w-full') and contains(@class,'py-3') and contains(@class,'rounded-lg') and contains(normalize-space(),'Place Long')]`},
		{Name: "place long fallback", Kind: browser.KindXPath, Value: `//div[contains(normalize-space(),'Place Long')]`},
	}

	placeShortButtons = []browser.Locator{
		{Name: "place short styled", Kind: browser.KindXPath, Value: `//div[contains(@class,'w-full') and contains(@class,'py-3') and contains(@class,'rounded-lg') and contains(normalize-space(),'Place Short')]`},
		{Name: "place short fallback", Kind: browser.KindXPath, Value: `//div[contains(normalize-space(),'Place Short')]`},
	}

	placeLongAll  = browser.Locator{Name: "place long all", Kind: browser.KindXPath, Value: `//div[contains(normalize-space(),'Place Long')]`}
	placeShortAll = browser.Locator{Name: "place short all", Kind: browser.KindXPath, Value: `//div[contains(normalize-space(),'Place Short')]`}
)

// Rewards page.
var claimRewardButtons = browser.Locator{
	Name:  "claim reward button",
	Kind:  browser.KindXPath,
	Value: `//button[contains(normalize-space(),'Claim Reward')]`,
}
